package internaldefs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	require.Equal(t, [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}, got)
}

func TestNormalizeTruncates(t *testing.T) {
	got := NormalizeBuckets([]uint64{1, 1, 1, 1, 1, 1, 1, 1, 9})
	require.Equal(t, uint64(1), got[7])
}

func TestDefinitionsUnique(t *testing.T) {
	seen := map[string]bool{AuditDroppedName: true}
	for _, d := range CounterDefs {
		require.True(t, strings.HasSuffix(d.Name, "_total"), d.Name)
		require.False(t, seen[d.Name], "duplicate %s", d.Name)
		seen[d.Name] = true
	}
	for _, d := range HistogramDefs {
		require.False(t, seen[d.Name], "duplicate %s", d.Name)
		seen[d.Name] = true
	}
	require.Len(t, HistogramBoundSuffix, len(HistogramUpperBounds)+1)
}
