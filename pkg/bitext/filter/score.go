package filter

import "github.com/gordicaleksa/Open-NLLB/pkg/bitext/counts"

// ScoreFilter drops mined pairs whose alignment score is below a threshold.
// Lines without a score pass through.
type ScoreFilter struct {
	threshold float64
}

// NewScoreFilter creates a score filter.
func NewScoreFilter(threshold float64) *ScoreFilter {
	return &ScoreFilter{threshold: threshold}
}

// Name implements Filter.
func (f *ScoreFilter) Name() string {
	return "score"
}

// FilterLine implements Filter.
func (f *ScoreFilter) FilterLine(line DatasetLine, c *counts.Counts) (DatasetLine, bool) {
	if line.Score != nil && *line.Score < f.threshold {
		c.LaserThreshold++
		return DatasetLine{}, false
	}
	return line, true
}
