package cryptoutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRound(t *testing.T) {
	require.Equal(t, 1.11, Round(1.1111, 3))
	require.Equal(t, 222.0, Round(222.2222, 3))
	require.Equal(t, 2220.0, Round(2222.2222, 3))
	require.Equal(t, 0.0, Round(0, 3))
}

func TestRoundSigZeroIsExact(t *testing.T) {
	require.Equal(t, 5.678, Round(5.678, 0))
	require.Equal(t, 0.0, Round(0, 0))
}

func TestPower(t *testing.T) {
	require.Equal(t, 0, Power(1))
	require.Equal(t, 0, Power(0))
	require.Equal(t, 2, Power(222.2))
	require.Equal(t, -1, Power(0.5))
}

func TestSmallestStep(t *testing.T) {
	// 3 significant figures at the 222.2 magnitude step in units of 1.
	require.InDelta(t, 1.0, SmallestStep(222.2, 3), 1e-9)
	// at the 22.2 magnitude, 3 sig figs step in units of 0.1.
	require.InDelta(t, 0.1, SmallestStep(22.2, 3), 1e-9)
}

func TestSmallestStepSigZeroIsExact(t *testing.T) {
	require.Equal(t, 1.0, SmallestStep(222.2, 0))
	require.Equal(t, 1.0, SmallestStep(0.0057, 0))
}

func TestRoundIsIdempotent(t *testing.T) {
	// rounding an already-rounded value must be a no-op, since the
	// enumerator repeatedly re-rounds as it steps through the envelope.
	for _, v := range []float64{1.1, 22.2, 333.0, 0.0057} {
		require.Equal(t, Round(v, 3), Round(Round(v, 3), 3))
	}
}
