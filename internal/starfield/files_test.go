package starfield

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParametersAreUsable(t *testing.T) {
	p := DefaultParameters()
	require.NoError(t, p.Validate())
	assert.Equal(t, 4, p.ArmCount)
	assert.Equal(t, uint32(12345), p.Seed)
	assert.Equal(t, p, p.Normalize(), "defaults need no coercion")
}

func TestLoadParametersOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "galaxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("star_count: 10\nseed: 7\narm_count: 2\n"), 0644))

	p, err := LoadParameters(path)
	require.NoError(t, err)

	defaults := DefaultParameters()
	assert.Equal(t, 10, p.StarCount)
	assert.Equal(t, uint32(7), p.Seed)
	assert.Equal(t, 2, p.ArmCount)
	assert.Equal(t, defaults.DiskRadius, p.DiskRadius)
	assert.Equal(t, defaults.BulgeStarCount, p.BulgeStarCount)
}

func TestLoadParametersErrors(t *testing.T) {
	_, err := LoadParameters(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("star_count: [1, 2"), 0644))
	_, err = LoadParameters(path)
	require.Error(t, err)
}

func TestWriteYAMLThenLoad(t *testing.T) {
	p := DefaultParameters()
	p.Seed = 4242
	p.ArmTwist = 2.5

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, p.WriteYAML(path))

	loaded, err := LoadParameters(path)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestWriteCSV(t *testing.T) {
	p := DefaultParameters()
	p.StarCount, p.BulgeStarCount = 3, 2
	buf, err := Generate(context.Background(), p)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, WriteCSV(&out, buf, p.StarCount))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "index,population,x,y,z,intensity,color_index", lines[0])

	var records []StarRecord
	require.NoError(t, gocsv.UnmarshalString(out.String(), &records))
	require.Len(t, records, 5)
	assert.Equal(t, PopulationDisk, records[2].Population)
	assert.Equal(t, PopulationBulge, records[3].Population)
	assert.InDelta(t, buf.Data[4*Stride+3], records[4].Intensity, 1e-6)
}

func TestBinaryEncoding(t *testing.T) {
	p := DefaultParameters()
	p.StarCount, p.BulgeStarCount = 50, 20
	buf, err := Generate(context.Background(), p)
	require.NoError(t, err)

	data, err := buf.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, binaryHeaderSize+buf.SizeBytes())
	assert.Equal(t, "STAR", string(data[:4]))

	var decoded StarBuffer
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, buf.Count, decoded.Count)
	assert.Equal(t, buf.Data, decoded.Data)
}

func TestBinaryDecodingRejectsCorruptInput(t *testing.T) {
	good, err := (&StarBuffer{Count: 1, Data: []float32{1, 2, 3, 4, 5}}).MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"short", good[:8]},
		{"bad magic", append([]byte("NOPE"), good[4:]...)},
		{"truncated payload", good[:len(good)-4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b StarBuffer
			assert.Error(t, b.UnmarshalBinary(tt.data))
		})
	}

	_, err = (&StarBuffer{Count: 2, Data: []float32{1}}).MarshalBinary()
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	p := DefaultParameters()
	q := p
	q.ArmCount = 0
	r := p
	r.ArmCount = -2

	assert.Equal(t, q.Fingerprint(), r.Fingerprint(), "normalization happens before hashing")
	assert.NotEqual(t, p.Fingerprint(), q.Fingerprint())
	assert.True(t, strings.HasPrefix(p.Fingerprint(), "v1:"))

	q.Seed++
	assert.NotEqual(t, r.Fingerprint(), q.Fingerprint())
}
