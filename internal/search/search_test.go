package search

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearContains is the reference implementation used to cross-check Contains.
func linearContains(lines []string, target string) bool {
	for _, line := range lines {
		if line == target {
			return true
		}
	}
	return false
}

func TestContains(t *testing.T) {
	tests := []struct {
		name   string
		sorted []string
		target string
		want   bool
	}{
		{
			name:   "empty sequence",
			sorted: []string{},
			target: "anything",
			want:   false,
		},
		{
			name:   "nil sequence",
			sorted: nil,
			target: "anything",
			want:   false,
		},
		{
			name:   "single element hit",
			sorted: []string{"apple"},
			target: "apple",
			want:   true,
		},
		{
			name:   "single element miss",
			sorted: []string{"apple"},
			target: "banana",
			want:   false,
		},
		{
			name:   "middle element",
			sorted: []string{"apple", "banana", "cherry"},
			target: "banana",
			want:   true,
		},
		{
			name:   "first element",
			sorted: []string{"apple", "banana", "cherry"},
			target: "apple",
			want:   true,
		},
		{
			name:   "last element",
			sorted: []string{"apple", "banana", "cherry"},
			target: "cherry",
			want:   true,
		},
		{
			name:   "miss between elements",
			sorted: []string{"apple", "banana", "cherry"},
			target: "blueberry",
			want:   false,
		},
		{
			name:   "miss before first",
			sorted: []string{"banana", "cherry"},
			target: "apple",
			want:   false,
		},
		{
			name:   "miss after last",
			sorted: []string{"apple", "banana"},
			target: "cherry",
			want:   false,
		},
		{
			name:   "exact match only, no case folding",
			sorted: []string{"Apple", "apple"},
			target: "APPLE",
			want:   false,
		},
		{
			name:   "no trimming",
			sorted: []string{"apple"},
			target: " apple",
			want:   false,
		},
		{
			name:   "duplicates",
			sorted: []string{"apple", "apple", "apple", "banana"},
			target: "apple",
			want:   true,
		},
		{
			name:   "empty string member",
			sorted: []string{"", "apple"},
			target: "",
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Contains(tt.sorted, tt.target))
		})
	}
}

func TestContainsMatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, size := range []int{0, 1, 2, 17, 1000, 10000} {
		t.Run(fmt.Sprintf("size_%d", size), func(t *testing.T) {
			lines := make([]string, 0, size)
			for i := 0; i < size; i++ {
				lines = append(lines, fmt.Sprintf("line-%06d", rng.Intn(size*2+1)))
			}
			sort.Strings(lines)
			require.True(t, sort.StringsAreSorted(lines))

			// Probe with every member plus a batch of random values.
			for _, member := range lines {
				assert.True(t, Contains(lines, member), "member %q", member)
			}
			for i := 0; i < 200; i++ {
				probe := fmt.Sprintf("line-%06d", rng.Intn(size*4+10))
				assert.Equal(t, linearContains(lines, probe), Contains(lines, probe), "probe %q", probe)
			}
		})
	}
}

func BenchmarkContains(b *testing.B) {
	lines := make([]string, 200000)
	for i := range lines {
		lines[i] = fmt.Sprintf("line-%012d", i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Contains(lines, "line-000000100000")
	}
}
