package starfield

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// PopulationSummary describes one star population of a buffer.
type PopulationSummary struct {
	Count         int     `json:"count"`
	MeanRadius    float64 `json:"mean_radius"`
	MaxRadius     float64 `json:"max_radius"`
	StdDevZ       float64 `json:"stddev_z"`
	MeanIntensity float64 `json:"mean_intensity"`
	P50Intensity  float64 `json:"p50_intensity"`
	P90Intensity  float64 `json:"p90_intensity"`
	MeanColor     float64 `json:"mean_color_index"`
}

// Summary is a statistical digest of a generated buffer.
type Summary struct {
	Total int               `json:"total"`
	Disk  PopulationSummary `json:"disk"`
	Bulge PopulationSummary `json:"bulge"`
}

// Summarize computes per-population statistics. The first diskCount rows are
// treated as disk stars.
func Summarize(buf *StarBuffer, diskCount int) Summary {
	if diskCount > buf.Count {
		diskCount = buf.Count
	}
	return Summary{
		Total: buf.Count,
		Disk:  summarizeRows(buf, 0, diskCount),
		Bulge: summarizeRows(buf, diskCount, buf.Count),
	}
}

func summarizeRows(buf *StarBuffer, from, to int) PopulationSummary {
	n := to - from
	if n <= 0 {
		return PopulationSummary{}
	}

	radii := make([]float64, n)
	zs := make([]float64, n)
	intensities := make([]float64, n)
	colors := make([]float64, n)
	maxRadius := 0.0

	for i := 0; i < n; i++ {
		s := buf.Star(from + i)
		radii[i] = math.Hypot(s.X, s.Y)
		zs[i] = s.Z
		intensities[i] = s.Intensity
		colors[i] = s.ColorIndex
		maxRadius = math.Max(maxRadius, radii[i])
	}

	sorted := append([]float64(nil), intensities...)
	sort.Float64s(sorted)

	summary := PopulationSummary{
		Count:         n,
		MeanRadius:    stat.Mean(radii, nil),
		MaxRadius:     maxRadius,
		MeanIntensity: stat.Mean(intensities, nil),
		P50Intensity:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90Intensity:  stat.Quantile(0.9, stat.Empirical, sorted, nil),
		MeanColor:     stat.Mean(colors, nil),
	}
	if n > 1 {
		summary.StdDevZ = stat.StdDev(zs, nil)
	}
	return summary
}
