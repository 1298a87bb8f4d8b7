package bloom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterAddTestNoFalseNegatives(t *testing.T) {
	f := NewFilter(1000, 0.01, 1, 2)
	items := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("parameter-42")}
	for _, it := range items {
		f.Add(it)
	}
	for _, it := range items {
		require.True(t, f.Test(it))
	}
}

func TestFilterTestAbsentUsuallyFalse(t *testing.T) {
	f := NewFilter(1000, 0.001, 1, 2)
	f.Add([]byte("present"))
	require.False(t, f.Test([]byte("definitely-not-inserted")))
}

func TestFilterMarshalUnmarshalRoundTrip(t *testing.T) {
	f := NewFilter(100, 0.01, 7, 9)
	f.Add([]byte("x"))
	f.Add([]byte("y"))

	raw, err := f.MarshalBinary()
	require.NoError(t, err)

	got := &Filter{}
	require.NoError(t, got.UnmarshalBinary(raw))
	require.True(t, got.Test([]byte("x")))
	require.True(t, got.Test([]byte("y")))
	require.False(t, got.Test([]byte("z")))
}

func TestFilterBase64RoundTrip(t *testing.T) {
	f := NewFilter(100, 0.01, 3, 4)
	f.Add([]byte("hello"))

	s, err := f.ToBase64()
	require.NoError(t, err)

	got, err := FromBase64(s)
	require.NoError(t, err)
	require.True(t, got.Test([]byte("hello")))
}

func TestUnmarshalBinaryRejectsTruncated(t *testing.T) {
	f := &Filter{}
	err := f.UnmarshalBinary([]byte{1, 2, 3})
	require.Error(t, err)
}
