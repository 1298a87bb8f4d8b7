package recordsource

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinColumns(t *testing.T) {
	require.Equal(t, "a, b, c", joinColumns([]string{"a", "b", "c"}))
}

func TestJoinColumnsSingle(t *testing.T) {
	require.Equal(t, "a", joinColumns([]string{"a"}))
}

func TestJoinColumnsEmpty(t *testing.T) {
	require.Equal(t, "", joinColumns(nil))
}
