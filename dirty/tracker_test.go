package dirty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddChangeMergesAndShifts(t *testing.T) {
	tr := NewTracker()

	steps := []struct {
		edit     LineRange
		newLines int
		want     []LineRange
	}{
		{LineRange{0, 5}, 3, []LineRange{{0, 3}}},
		{LineRange{3, 7}, 4, []LineRange{{0, 7}}},
		{LineRange{20, 30}, 3, []LineRange{{0, 7}, {20, 23}}},
		{LineRange{0, 1}, 0, []LineRange{{0, 6}, {19, 22}}},
		{LineRange{0, 0}, 10, []LineRange{{0, 16}, {29, 32}}},
	}
	for i, step := range steps {
		tr.AddChange(step.edit, step.newLines)
		require.Equal(t, step.want, tr.Ranges(), "step %d", i)
	}
}

func TestRangesStaySortedAndDisjoint(t *testing.T) {
	tr := NewTracker()
	edits := []struct {
		edit     LineRange
		newLines int
	}{
		{LineRange{10, 12}, 2},
		{LineRange{0, 1}, 3},
		{LineRange{5, 5}, 1},
		{LineRange{8, 20}, 4},
		{LineRange{2, 3}, 1},
		{LineRange{0, 30}, 30},
	}
	for _, e := range edits {
		tr.AddChange(e.edit, e.newLines)
		rs := tr.Ranges()
		for i := 1; i < len(rs); i++ {
			assert.Less(t, rs[i-1].End, rs[i].Start,
				"ranges %v must not touch after %v", rs, e.edit)
		}
	}
}

func TestRepeatedIdenticalEdit(t *testing.T) {
	tr := NewTracker()
	tr.AddChange(LineRange{2, 4}, 2)
	tr.AddChange(LineRange{2, 4}, 2)
	// Recording the same region twice merges into a single range.
	assert.Equal(t, []LineRange{{2, 4}}, tr.Ranges())
}

func TestClear(t *testing.T) {
	tr := NewTracker()
	tr.AddChange(LineRange{0, 2}, 2)
	require.NotEmpty(t, tr.Ranges())
	tr.Clear()
	assert.Empty(t, tr.Ranges())
}

func TestTouches(t *testing.T) {
	assert.True(t, LineRange{0, 2}.Touches(LineRange{2, 4}))
	assert.True(t, LineRange{0, 5}.Touches(LineRange{1, 2}))
	assert.False(t, LineRange{0, 2}.Touches(LineRange{3, 4}))
}
