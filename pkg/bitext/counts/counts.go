// Package counts accumulates per-reason filtering statistics.
package counts

import "fmt"

// Counts records how many lines entered a pipeline run, how many survived, and
// why the rest were dropped. The zero value is the additive identity for Merge.
type Counts struct {
	TotalBefore int64 `yaml:"total_before" json:"total_before"`
	TotalAfter  int64 `yaml:"total_after" json:"total_after"`

	// LengthFilter
	Empty             int64 `yaml:"empty" json:"empty"`
	MinLen            int64 `yaml:"min_len" json:"min_len"`
	MaxLen            int64 `yaml:"max_len" json:"max_len"`
	MaxLenRatio       int64 `yaml:"max_len_ratio" json:"max_len_ratio"`
	MinSrcUniqueRatio int64 `yaml:"min_src_unique_ratio" json:"min_src_unique_ratio"`

	// Toxicity
	MaxToxicity           int64 `yaml:"max_toxicity" json:"max_toxicity"`
	MaxToxicityDifference int64 `yaml:"max_toxicity_difference" json:"max_toxicity_difference"`

	// LIDFilter
	LIDThreshold int64 `yaml:"lid_threshold" json:"lid_threshold"`

	// ScoreFilter
	LaserThreshold int64 `yaml:"laser_threshold" json:"laser_threshold"`

	// DedupFilter
	SourceDedup int64 `yaml:"source_dedup" json:"source_dedup"`
	TargetDedup int64 `yaml:"target_dedup" json:"target_dedup"`
	PairDedup   int64 `yaml:"pair_dedup" json:"pair_dedup"`
}

// Field is one named counter.
type Field struct {
	Name  string
	Value int64
}

// Merge returns the field-wise sum of a and b.
func Merge(a, b Counts) Counts {
	return Counts{
		TotalBefore:           a.TotalBefore + b.TotalBefore,
		TotalAfter:            a.TotalAfter + b.TotalAfter,
		Empty:                 a.Empty + b.Empty,
		MinLen:                a.MinLen + b.MinLen,
		MaxLen:                a.MaxLen + b.MaxLen,
		MaxLenRatio:           a.MaxLenRatio + b.MaxLenRatio,
		MinSrcUniqueRatio:     a.MinSrcUniqueRatio + b.MinSrcUniqueRatio,
		MaxToxicity:           a.MaxToxicity + b.MaxToxicity,
		MaxToxicityDifference: a.MaxToxicityDifference + b.MaxToxicityDifference,
		LIDThreshold:          a.LIDThreshold + b.LIDThreshold,
		LaserThreshold:        a.LaserThreshold + b.LaserThreshold,
		SourceDedup:           a.SourceDedup + b.SourceDedup,
		TargetDedup:           a.TargetDedup + b.TargetDedup,
		PairDedup:             a.PairDedup + b.PairDedup,
	}
}

// Sum reduces any number of Counts, starting from the zero value.
func Sum(cs ...Counts) Counts {
	var total Counts
	for _, c := range cs {
		total = Merge(total, c)
	}
	return total
}

// Add merges other into c in place.
func (c *Counts) Add(other Counts) {
	*c = Merge(*c, other)
}

// Dropped returns the sum of all drop reasons.
func (c Counts) Dropped() int64 {
	return c.Empty + c.MinLen + c.MaxLen + c.MaxLenRatio + c.MinSrcUniqueRatio +
		c.MaxToxicity + c.MaxToxicityDifference +
		c.LIDThreshold + c.LaserThreshold +
		c.SourceDedup + c.TargetDedup + c.PairDedup
}

// Check verifies that every line that did not survive has a recorded reason.
func (c Counts) Check() error {
	if want := c.TotalBefore - c.Dropped(); c.TotalAfter != want {
		return fmt.Errorf("counts: total_after=%d, expected total_before-dropped=%d", c.TotalAfter, want)
	}
	return nil
}

// Fields lists every counter in a stable order.
func (c Counts) Fields() []Field {
	return []Field{
		{"total_before", c.TotalBefore},
		{"total_after", c.TotalAfter},
		{"empty", c.Empty},
		{"min_len", c.MinLen},
		{"max_len", c.MaxLen},
		{"max_len_ratio", c.MaxLenRatio},
		{"min_src_unique_ratio", c.MinSrcUniqueRatio},
		{"max_toxicity", c.MaxToxicity},
		{"max_toxicity_difference", c.MaxToxicityDifference},
		{"lid_threshold", c.LIDThreshold},
		{"laser_threshold", c.LaserThreshold},
		{"source_dedup", c.SourceDedup},
		{"target_dedup", c.TargetDedup},
		{"pair_dedup", c.PairDedup},
	}
}

// FromFields rebuilds Counts from named values; unknown names are ignored.
func FromFields(fields []Field) Counts {
	var c Counts
	for _, f := range fields {
		if p := c.ptr(f.Name); p != nil {
			*p = f.Value
		}
	}
	return c
}

func (c *Counts) ptr(name string) *int64 {
	switch name {
	case "total_before":
		return &c.TotalBefore
	case "total_after":
		return &c.TotalAfter
	case "empty":
		return &c.Empty
	case "min_len":
		return &c.MinLen
	case "max_len":
		return &c.MaxLen
	case "max_len_ratio":
		return &c.MaxLenRatio
	case "min_src_unique_ratio":
		return &c.MinSrcUniqueRatio
	case "max_toxicity":
		return &c.MaxToxicity
	case "max_toxicity_difference":
		return &c.MaxToxicityDifference
	case "lid_threshold":
		return &c.LIDThreshold
	case "laser_threshold":
		return &c.LaserThreshold
	case "source_dedup":
		return &c.SourceDedup
	case "target_dedup":
		return &c.TargetDedup
	case "pair_dedup":
		return &c.PairDedup
	}
	return nil
}
