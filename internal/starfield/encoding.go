package starfield

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Binary layout, little endian:
//
//	0  magic "STAR"
//	4  uint16 format version
//	6  uint16 stride
//	8  uint32 star count
//	12 uint32 reserved
//	16 count*stride float32 values
const (
	binaryMagic      = "STAR"
	binaryVersion    = 1
	binaryHeaderSize = 16
)

// MarshalBinary encodes b with a small header so a renderer can upload the
// payload without parsing it.
func (b *StarBuffer) MarshalBinary() ([]byte, error) {
	if len(b.Data) != b.Count*Stride {
		return nil, fmt.Errorf("star buffer holds %d values for %d stars", len(b.Data), b.Count)
	}

	out := make([]byte, binaryHeaderSize+len(b.Data)*4)
	copy(out[0:4], binaryMagic)
	binary.LittleEndian.PutUint16(out[4:6], binaryVersion)
	binary.LittleEndian.PutUint16(out[6:8], Stride)
	binary.LittleEndian.PutUint32(out[8:12], uint32(b.Count))

	payload := out[binaryHeaderSize:]
	for i, v := range b.Data {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
	}
	return out, nil
}

// UnmarshalBinary decodes data produced by MarshalBinary.
func (b *StarBuffer) UnmarshalBinary(data []byte) error {
	if len(data) < binaryHeaderSize {
		return fmt.Errorf("star buffer too short: %d bytes", len(data))
	}
	if string(data[0:4]) != binaryMagic {
		return fmt.Errorf("star buffer has bad magic %q", data[0:4])
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != binaryVersion {
		return fmt.Errorf("unsupported star buffer version %d", v)
	}
	if s := binary.LittleEndian.Uint16(data[6:8]); s != Stride {
		return fmt.Errorf("unsupported star buffer stride %d", s)
	}

	count := int(binary.LittleEndian.Uint32(data[8:12]))
	payload := data[binaryHeaderSize:]
	if len(payload) != count*Stride*4 {
		return fmt.Errorf("star buffer payload is %d bytes, want %d", len(payload), count*Stride*4)
	}

	values := make([]float32, count*Stride)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	b.Count = count
	b.Data = values
	return nil
}
