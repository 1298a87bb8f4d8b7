package similarity

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/paramexchange/core/internal/cryptoutil"
	"github.com/paramexchange/core/internal/errs"
)

func stepOf(v float64, sig int) float64 { return cryptoutil.SmallestStep(v, sig) }

// AbsoluteOffset admits any candidate within +/- Offset of the query value
// in each dimension, regardless of rounding granularity.
type AbsoluteOffset struct{ Offset float64 }

func (p AbsoluteOffset) Envelope(query []float64, roundingVec []int) (min, max []float64) {
	min = make([]float64, len(query))
	max = make([]float64, len(query))
	for i, v := range query {
		min[i] = v - p.Offset
		max[i] = v + p.Offset
	}
	return min, max
}

// RelativeOffset admits any candidate within +/- Offset grid steps of the
// query value, where a "step" is the smallest representable increment at
// that dimension's rounding significance.
type RelativeOffset struct{ Offset float64 }

func (p RelativeOffset) Envelope(query []float64, roundingVec []int) (min, max []float64) {
	min = make([]float64, len(query))
	max = make([]float64, len(query))
	for i, v := range query {
		step := stepOf(v, roundingVec[i])
		min[i] = v - p.Offset*step
		max[i] = v + p.Offset*step
	}
	return min, max
}

// VariableOffset admits a distinct absolute offset per dimension. When
// PositiveOnly is set, the envelope extends only upward from the query
// value (used by the "wzl1"/"wzl2" named presets).
type VariableOffset struct {
	Offsets      []float64
	PositiveOnly bool
}

func (p VariableOffset) Envelope(query []float64, roundingVec []int) (min, max []float64) {
	min = make([]float64, len(query))
	max = make([]float64, len(query))
	for i, v := range query {
		off := p.Offsets[i]
		if p.PositiveOnly {
			min[i] = v
			max[i] = v + off
		} else {
			min[i] = v - off
			max[i] = v + off
		}
	}
	return min, max
}

var (
	absOffsetRe = regexp.MustCompile(`^(abs[Oo]ffset|offset)-(\d+(?:\.\d+)?)$`)
	relOffsetRe = regexp.MustCompile(`^relOffset-(\d+(?:\.\d+)?)$`)
)

// namedPresets holds the fixed, hardcoded variable-offset metrics carried
// over from the original enumerator's metric table.
var namedPresets = map[string][]float64{
	"wzl1": {1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
	"wzl2": {2, 2, 2, 2, 2, 2, 2, 2, 2, 2},
}

// ParseMetric recognises the metric-name grammar the original system
// accepted: "offset-N" / "absOffset-N" (aliases, both absolute), "relOffset-N",
// and the fixed named presets "wzl1"/"wzl2" (variable, positive-only).
func ParseMetric(name string) (Policy, error) {
	if offsets, ok := namedPresets[name]; ok {
		return VariableOffset{Offsets: offsets, PositiveOnly: true}, nil
	}
	if m := absOffsetRe.FindStringSubmatch(name); m != nil {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, errs.ConfigError("similarity.ParseMetric", err)
		}
		return AbsoluteOffset{Offset: v}, nil
	}
	if m := relOffsetRe.FindStringSubmatch(name); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, errs.ConfigError("similarity.ParseMetric", err)
		}
		return RelativeOffset{Offset: v}, nil
	}
	return nil, errs.ConfigError("similarity.ParseMetric", fmt.Errorf("unrecognised metric name %q", name))
}
