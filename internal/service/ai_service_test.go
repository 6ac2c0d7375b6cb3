package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruncateInput(t *testing.T) {
	require.Equal(t, "abc", truncateInput("abc", 10))
	require.Equal(t, "abc", truncateInput("abc", 3))
	require.Equal(t, "ab"+truncationMarker, truncateInput("abcd", 2))
	require.Equal(t, "abc", truncateInput("abc", 0))

	long := strings.Repeat("x", 500)
	got := truncateInput(long, 100)
	require.Len(t, got, 100+len(truncationMarker))
	require.True(t, strings.HasSuffix(got, truncationMarker))
}
