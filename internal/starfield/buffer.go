package starfield

import (
	"math"

	"starfield-server/internal/shared/errors"
)

// Stride is the number of float32 values per star: x, y, z, intensity, color index.
const Stride = 5

// Star is one sampled point. ColorIndex is normalized to [0, 1].
type Star struct {
	X, Y, Z    float64
	Intensity  float64
	ColorIndex float64
}

// StarBuffer is the interleaved output of one generation. Disk stars come
// first, bulge stars after them. A buffer is never modified once returned.
type StarBuffer struct {
	Count int
	Data  []float32
}

// Star returns row i of the buffer.
func (b *StarBuffer) Star(i int) Star {
	row := b.Data[i*Stride : i*Stride+Stride]
	return Star{
		X:          float64(row[0]),
		Y:          float64(row[1]),
		Z:          float64(row[2]),
		Intensity:  float64(row[3]),
		ColorIndex: float64(row[4]),
	}
}

// SizeBytes is the size of Data in bytes.
func (b *StarBuffer) SizeBytes() int {
	return len(b.Data) * 4
}

// assembler packs stars into a preallocated buffer.
type assembler struct {
	data []float32
}

func newAssembler(capacity int) *assembler {
	return &assembler{data: make([]float32, 0, capacity*Stride)}
}

func (a *assembler) add(s Star) error {
	row := [Stride]float32{
		float32(s.X),
		float32(s.Y),
		float32(s.Z),
		float32(s.Intensity),
		float32(s.ColorIndex),
	}
	for _, v := range row {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return errors.Internalf("star %d has non-finite value %v", len(a.data)/Stride, v)
		}
	}
	a.data = append(a.data, row[:]...)
	return nil
}

func (a *assembler) buffer() *StarBuffer {
	return &StarBuffer{Count: len(a.data) / Stride, Data: a.data}
}
