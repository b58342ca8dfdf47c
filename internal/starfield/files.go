package starfield

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// DefaultParameters returns the embedded default galaxy.
func DefaultParameters() Parameters {
	var p Parameters
	if err := yaml.Unmarshal(defaultsYAML, &p); err != nil {
		panic(fmt.Sprintf("starfield: parsing embedded defaults: %v", err))
	}
	return p
}

// LoadParameters reads a YAML parameter file over the embedded defaults.
// Fields absent from the file keep their default values. An empty path
// returns the defaults.
func LoadParameters(path string) (Parameters, error) {
	p := DefaultParameters()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Parameters{}, fmt.Errorf("reading parameter file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Parameters{}, fmt.Errorf("parsing parameter file: %w", err)
	}
	return p, nil
}

// WriteYAML writes p to path.
func (p Parameters) WriteYAML(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling parameters: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing parameter file: %w", err)
	}
	return nil
}

// StarRecord is the CSV row layout of one star.
type StarRecord struct {
	Index      int     `csv:"index"`
	Population string  `csv:"population"`
	X          float32 `csv:"x"`
	Y          float32 `csv:"y"`
	Z          float32 `csv:"z"`
	Intensity  float32 `csv:"intensity"`
	ColorIndex float32 `csv:"color_index"`
}

const (
	PopulationDisk  = "disk"
	PopulationBulge = "bulge"
)

// WriteCSV writes buf as CSV with a header row. diskCount tells which rows
// belong to the disk; the rest are labelled as bulge.
func WriteCSV(w io.Writer, buf *StarBuffer, diskCount int) error {
	records := make([]StarRecord, buf.Count)
	for i := range records {
		row := buf.Data[i*Stride : i*Stride+Stride]
		population := PopulationDisk
		if i >= diskCount {
			population = PopulationBulge
		}
		records[i] = StarRecord{
			Index:      i,
			Population: population,
			X:          row[0],
			Y:          row[1],
			Z:          row[2],
			Intensity:  row[3],
			ColorIndex: row[4],
		}
	}

	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("writing stars: %w", err)
	}
	return nil
}
