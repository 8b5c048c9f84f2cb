package photoset

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/genricoloni/veloframe/internal/config"
	"github.com/genricoloni/veloframe/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func landscape(name string) domain.PhotoEntry {
	return domain.PhotoEntry{Path: "/photos/" + name, Width: 400, Height: 300}
}

func portrait(name string) domain.PhotoEntry {
	return domain.PhotoEntry{Path: "/photos/" + name, Width: 300, Height: 400}
}

func newTestSet(t *testing.T, entries []domain.PhotoEntry, opts ...Option) *FileSet {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(7, 11)))}, opts...)
	f, err := New(zap.NewNop(), entries, opts...)
	require.NoError(t, err)
	return f
}

// describe renders a selection as "A" or "B+C" for compact assertions
func describe(sel domain.Selection) string {
	out := ""
	for i, e := range sel.Entries() {
		if i > 0 {
			out += "+"
		}
		out += e.Name()
	}
	return out
}

func TestFileSet_Sequences(t *testing.T) {
	tests := []struct {
		name     string
		entries  []domain.PhotoEntry
		expected []string
	}{
		{
			name:     "Landscape Pair Landscape",
			entries:  []domain.PhotoEntry{landscape("A"), portrait("B"), portrait("C"), landscape("D")},
			expected: []string{"A", "B+C", "D", "A", "B+C"},
		},
		{
			name:     "Odd Count Of Portraits",
			entries:  []domain.PhotoEntry{portrait("A"), portrait("B"), portrait("C")},
			expected: []string{"A+B", "C", "A+B", "C"},
		},
		{
			name:     "Even Count Of Portraits",
			entries:  []domain.PhotoEntry{portrait("A"), portrait("B"), portrait("C"), portrait("D")},
			expected: []string{"A+B", "C+D", "A+B"},
		},
		{
			name:     "Trailing Portraits Never Pair Across Wrap",
			entries:  []domain.PhotoEntry{portrait("A"), landscape("B"), portrait("C")},
			expected: []string{"A", "B", "C", "A"},
		},
		{
			name:     "Pair At The End",
			entries:  []domain.PhotoEntry{landscape("A"), portrait("B"), portrait("C")},
			expected: []string{"A", "B+C", "A"},
		},
		{
			name:     "Single Entry",
			entries:  []domain.PhotoEntry{portrait("A")},
			expected: []string{"A", "A", "A"},
		},
		{
			name:     "All Landscape",
			entries:  []domain.PhotoEntry{landscape("A"), landscape("B")},
			expected: []string{"A", "B", "A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestSet(t, tt.entries)

			got := []string{describe(f.Current())}
			for len(got) < len(tt.expected) {
				got = append(got, describe(f.Advance()))
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFileSet_AdvanceThenRetreatRestoresSelection(t *testing.T) {
	collections := map[string][]domain.PhotoEntry{
		"mixed":     {landscape("A"), portrait("B"), portrait("C"), landscape("D")},
		"tricky":    {portrait("A"), portrait("B"), portrait("C"), landscape("D")},
		"portraits": {portrait("A"), portrait("B"), portrait("C")},
		"single":    {landscape("A")},
	}

	for name, entries := range collections {
		t.Run(name, func(t *testing.T) {
			f := newTestSet(t, entries)
			for step := 0; step < 2*len(entries)+1; step++ {
				before := f.Current()
				f.Advance()
				after := f.Retreat()
				assert.True(t, before.Equal(after), "step %d: %s then %s", step, describe(before), describe(after))
				f.Advance()
			}
		})
	}
}

func TestFileSet_RetreatWalksSlidesBackwards(t *testing.T) {
	f := newTestSet(t, []domain.PhotoEntry{portrait("A"), portrait("B"), portrait("C"), landscape("D")})

	assert.Equal(t, "A+B", describe(f.Current()))
	assert.Equal(t, "D", describe(f.Retreat()))
	assert.Equal(t, "C", describe(f.Retreat()))
	assert.Equal(t, "A+B", describe(f.Retreat()))
	assert.Equal(t, 0, f.Index())
}

func TestFileSet_StepSizes(t *testing.T) {
	f := newTestSet(t, []domain.PhotoEntry{landscape("A"), portrait("B"), portrait("C"), landscape("D")})

	assert.Equal(t, 0, f.Index())
	f.Advance()
	assert.Equal(t, 1, f.Index())
	f.Advance()
	assert.Equal(t, 3, f.Index(), "a pair consumes two photos")
	f.Advance()
	assert.Equal(t, 0, f.Index(), "wraps to the first photo")
	assert.Equal(t, 3, f.Slides())
}

func TestFileSet_SeekToPortraitPair(t *testing.T) {
	entries := []domain.PhotoEntry{portrait("A"), portrait("B"), portrait("C"), landscape("D"), portrait("E"), portrait("F")}

	for i := 0; i < len(entries); i++ {
		f := newTestSet(t, entries)
		sel := f.Seek(i)
		assert.True(t, sel.Equal(f.SelectionAt(i)), "seek %d", i)

		next := f.Advance()
		want := (i + sel.Len()) % len(entries)
		if i+sel.Len() >= len(entries) {
			want = 0
		}
		assert.Equal(t, want, f.Index(), "advance after seek %d", i)
		assert.Equal(t, entries[want].Path, next.First().Path)

		// the boundary left by the seek is gone after one full pass
		for f.Index() != 0 {
			f.Advance()
		}
		var pass []string
		for j := 0; j < 4; j++ {
			pass = append(pass, describe(f.Current()))
			f.Advance()
		}
		assert.Equal(t, []string{"A+B", "C", "D", "E+F"}, pass, "pass after seek %d", i)
	}
}

func TestFileSet_SelectionAt(t *testing.T) {
	f := newTestSet(t, []domain.PhotoEntry{landscape("A"), portrait("B"), portrait("C"), portrait("D")})

	assert.Equal(t, "A", describe(f.SelectionAt(0)))
	assert.Equal(t, "B+C", describe(f.SelectionAt(1)))
	assert.Equal(t, "C+D", describe(f.SelectionAt(2)))
	assert.Equal(t, "D", describe(f.SelectionAt(3)), "no pairing past the end")
	assert.Equal(t, "A", describe(f.SelectionAt(4)), "out of range wraps")
	assert.Equal(t, "D", describe(f.SelectionAt(-1)))
	assert.Equal(t, 0, f.Index(), "SelectionAt does not move the cursor")
}

func TestFileSet_EmptyCollection(t *testing.T) {
	_, err := New(zap.NewNop(), nil)
	assert.True(t, errors.Is(err, domain.ErrEmptyCollection))
}

func TestFileSet_DoesNotAliasInput(t *testing.T) {
	entries := []domain.PhotoEntry{landscape("A"), landscape("B")}
	f := newTestSet(t, entries)
	entries[0] = landscape("Z")

	assert.Equal(t, "A", describe(f.Current()))
}

func TestFileSet_RandomOrderIsPermutation(t *testing.T) {
	var entries []domain.PhotoEntry
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		entries = append(entries, landscape(name))
	}

	f := newTestSet(t, entries, WithRandomOrder(true))
	assert.ElementsMatch(t, entries, f.Entries())
}

func TestFileSet_ReshuffleOnWrap(t *testing.T) {
	var entries []domain.PhotoEntry
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		entries = append(entries, landscape(name))
	}

	f := newTestSet(t, entries, WithRandomOrder(true), WithReshuffle(config.ReshuffleOnWrap))

	for round := 0; round < 20; round++ {
		for i := 0; i < f.Slides()-1; i++ {
			f.Advance()
		}
		last := f.Current()
		first := f.Advance()

		assert.NotEqual(t, last.First().Path, first.First().Path, "round %d repeats the seam photo", round)
		assert.ElementsMatch(t, entries, f.Entries())
	}
}

func TestFileSet_ReshuffleOnWrapAvoidsShownPair(t *testing.T) {
	var entries []domain.PhotoEntry
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		entries = append(entries, portrait(name))
	}

	f := newTestSet(t, entries, WithRandomOrder(true), WithReshuffle(config.ReshuffleOnWrap))

	for round := 0; round < 20; round++ {
		for i := 0; i < f.Slides()-1; i++ {
			f.Advance()
		}
		last := f.Current()
		require.True(t, last.IsPair(), "round %d", round)

		first := f.Advance()
		assert.NotContains(t, last.Paths(), first.First().Path, "round %d starts with a photo from the seam pair", round)
		assert.ElementsMatch(t, entries, f.Entries())
	}
}

func TestFileSet_ReshuffleOnWrapCanBeUndone(t *testing.T) {
	entries := []domain.PhotoEntry{landscape("A"), portrait("B"), portrait("C"), landscape("D"), portrait("E")}
	f := newTestSet(t, entries, WithRandomOrder(true), WithReshuffle(config.ReshuffleOnWrap))

	for i := 0; i < f.Slides()-1; i++ {
		f.Advance()
	}
	lastOfFirstPass := f.Current()
	firstPass := f.Entries()

	firstOfSecondPass := f.Advance()
	assert.True(t, lastOfFirstPass.Equal(f.Retreat()), "retreat crosses back over the reshuffle")
	assert.Equal(t, firstPass, f.Entries())

	assert.True(t, firstOfSecondPass.Equal(f.Advance()), "advancing again reuses the reshuffled order")
}

func TestFileSet_ReshuffleNeverKeepsOrder(t *testing.T) {
	entries := []domain.PhotoEntry{landscape("A"), landscape("B"), landscape("C")}
	f := newTestSet(t, entries, WithRandomOrder(true), WithReshuffle(config.ReshuffleNever))

	before := f.Entries()
	for i := 0; i < 3*len(entries); i++ {
		f.Advance()
	}
	assert.Equal(t, before, f.Entries())
}

func TestFileSet_Replace(t *testing.T) {
	tests := []struct {
		name        string
		replacement []domain.PhotoEntry
		wantCurrent string
		wantErr     bool
	}{
		{
			name:        "Keeps Current Photo",
			replacement: []domain.PhotoEntry{landscape("0"), landscape("A"), portrait("C"), portrait("X")},
			wantCurrent: "C+X",
		},
		{
			name:        "Current Photo Gone",
			replacement: []domain.PhotoEntry{landscape("Q"), landscape("R")},
			wantCurrent: "Q",
		},
		{
			name:    "Empty Rescan",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestSet(t, []domain.PhotoEntry{landscape("A"), landscape("B"), portrait("C"), landscape("D")})
			f.Advance()
			f.Advance()
			require.Equal(t, "C", describe(f.Current()))

			err := f.Replace(tt.replacement)
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrEmptyCollection))
				assert.Equal(t, "C", describe(f.Current()), "failed replace keeps the old collection")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCurrent, describe(f.Current()))
		})
	}
}

func TestFileSet_ReplaceKeepsNavigationConsistent(t *testing.T) {
	f := newTestSet(t, []domain.PhotoEntry{portrait("A"), portrait("B"), portrait("C")})
	f.Advance()
	require.Equal(t, "C", describe(f.Current()))

	require.NoError(t, f.Replace([]domain.PhotoEntry{portrait("B"), portrait("C"), portrait("D")}))
	assert.Equal(t, "C+D", describe(f.Current()))

	// B sits before the kept photo and does not pair across it on this pass
	assert.Equal(t, "B", describe(f.Retreat()))
	assert.Equal(t, "C+D", describe(f.Advance()))

	// the next pass is cut by the pairing rule alone
	assert.Equal(t, "B+C", describe(f.Advance()))

	// and the wrap that re-cut the order can still be undone
	assert.Equal(t, "C+D", describe(f.Retreat()))
	assert.Equal(t, "B+C", describe(f.Advance()))

	assert.Equal(t, "D", describe(f.Advance()))
	assert.Equal(t, "B+C", describe(f.Advance()))
	assert.Equal(t, "D", describe(f.Retreat()))
}

func TestFileSet_ReplacedPortraitsPairAfterWrap(t *testing.T) {
	f := newTestSet(t, []domain.PhotoEntry{landscape("A"), landscape("B"), portrait("C")})
	f.Advance()
	f.Advance()
	require.Equal(t, "C", describe(f.Current()))

	require.NoError(t, f.Replace([]domain.PhotoEntry{portrait("X"), portrait("C"), landscape("D")}))
	require.Equal(t, "C", describe(f.Current()))

	assert.Equal(t, "D", describe(f.Advance()))
	for pass := 0; pass < 3; pass++ {
		assert.Equal(t, "X+C", describe(f.Advance()), "pass %d", pass)
		assert.True(t, f.Current().Equal(f.SelectionAt(0)))
		assert.Equal(t, "D", describe(f.Advance()), "pass %d", pass)
	}
}
