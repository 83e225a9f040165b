package algorithms

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	t.Run("empty slice", func(t *testing.T) {
		require := require.New(t)

		var s []int
		got := Map(s, func(i int) int { return i })
		require.Equal([]int{}, got)
	})
	t.Run("non-empty slice", func(t *testing.T) {
		require := require.New(t)

		s := []string{"a", "bc", "def"}
		got := Map(s, func(v string) int { return len(v) })
		require.Equal([]int{1, 2, 3}, got)
	})
}

func TestFilter(t *testing.T) {
	t.Run("empty slice", func(t *testing.T) {
		require := require.New(t)

		var s []int
		got := Filter(s, func(i int) bool { return i%2 == 0 })
		require.Equal([]int{}, got)
	})
	t.Run("keeps order", func(t *testing.T) {
		require := require.New(t)

		s := []int{5, 2, 7, 4, 1}
		got := Filter(s, func(i int) bool { return i%2 == 0 })
		require.Equal([]int{2, 4}, got)
	})
	t.Run("nothing matches", func(t *testing.T) {
		require := require.New(t)

		s := []int{1, 3, 5}
		got := Filter(s, func(i int) bool { return i%2 == 0 })
		require.Empty(got)
	})
}
