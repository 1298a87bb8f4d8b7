package similarity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMetricAbsoluteOffset(t *testing.T) {
	p, err := ParseMetric("offset-5")
	require.NoError(t, err)
	require.Equal(t, AbsoluteOffset{Offset: 5}, p)

	p2, err := ParseMetric("absOffset-5")
	require.NoError(t, err)
	require.Equal(t, AbsoluteOffset{Offset: 5}, p2)
}

func TestParseMetricRelativeOffset(t *testing.T) {
	p, err := ParseMetric("relOffset-2")
	require.NoError(t, err)
	require.Equal(t, RelativeOffset{Offset: 2}, p)
}

func TestParseMetricNamedPresets(t *testing.T) {
	p, err := ParseMetric("wzl1")
	require.NoError(t, err)
	vo, ok := p.(VariableOffset)
	require.True(t, ok)
	require.True(t, vo.PositiveOnly)
	require.Len(t, vo.Offsets, 10)
}

func TestParseMetricUnrecognised(t *testing.T) {
	_, err := ParseMetric("bogus-metric")
	require.Error(t, err)
}

func TestAbsoluteOffsetEnvelope(t *testing.T) {
	p := AbsoluteOffset{Offset: 1}
	min, max := p.Envelope([]float64{10, 20}, []int{3, 3})
	require.Equal(t, []float64{9, 19}, min)
	require.Equal(t, []float64{11, 21}, max)
}

func TestVariableOffsetPositiveOnly(t *testing.T) {
	p := VariableOffset{Offsets: []float64{1, 2}, PositiveOnly: true}
	min, max := p.Envelope([]float64{10, 20}, []int{3, 3})
	require.Equal(t, []float64{10, 20}, min)
	require.Equal(t, []float64{11, 22}, max)
}
