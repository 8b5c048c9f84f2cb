package photoset

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/genricoloni/veloframe/internal/config"
	"github.com/genricoloni/veloframe/internal/domain"
	"go.uber.org/zap"
)

// order is one arrangement of the collection cut into slides.
// starts holds the photo index where each slide begins; slides never cross
// the anchor or the end of the collection.
type order struct {
	entries []domain.PhotoEntry
	starts  []int
	anchor  int
}

// FileSet owns the ordered photo list and the navigation cursor.
// It is not safe for concurrent use.
type FileSet struct {
	logger      *zap.Logger
	randomOrder bool
	reshuffle   config.ReshufflePolicy
	rng         *rand.Rand

	cur   order
	slide int

	// prev and next keep the neighbouring arrangements across a reshuffle so
	// that Retreat can undo the Advance that produced it
	prev *order
	next *order
}

// Option customizes a FileSet
type Option func(*FileSet)

// WithRandomOrder shuffles the collection once at build time
func WithRandomOrder(random bool) Option {
	return func(f *FileSet) { f.randomOrder = random }
}

// WithReshuffle sets what happens to a random order when the slideshow loops
func WithReshuffle(policy config.ReshufflePolicy) Option {
	return func(f *FileSet) { f.reshuffle = policy }
}

// WithRand sets the random source (tests use a seeded one)
func WithRand(rng *rand.Rand) Option {
	return func(f *FileSet) { f.rng = rng }
}

// New builds a file set over entries. The slice is copied.
func New(logger *zap.Logger, entries []domain.PhotoEntry, opts ...Option) (*FileSet, error) {
	if len(entries) == 0 {
		return nil, domain.ErrEmptyCollection
	}

	f := &FileSet{
		logger:    logger,
		reshuffle: config.ReshuffleNever,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.rng == nil {
		now := uint64(time.Now().UnixNano())
		f.rng = rand.New(rand.NewPCG(now, now>>1|1))
	}

	list := append([]domain.PhotoEntry(nil), entries...)
	if f.randomOrder {
		f.shuffle(list)
	}
	f.cur = newOrder(list, 0)

	logger.Debug("Photo file set ready",
		zap.Int("photos", len(list)),
		zap.Int("slides", len(f.cur.starts)),
		zap.Bool("random", f.randomOrder),
		zap.String("reshuffle", string(f.reshuffle)))

	return f, nil
}

// NewFromConfig builds a file set from scanned entries using the configured ordering
func NewFromConfig(logger *zap.Logger, cfg *config.AppConfig, entries []domain.PhotoEntry) (*FileSet, error) {
	return New(logger, entries,
		WithRandomOrder(cfg.RandomOrder()),
		WithReshuffle(cfg.Reshuffle()))
}

// newOrder cuts entries into slides, with a slide boundary forced at anchor
func newOrder(entries []domain.PhotoEntry, anchor int) order {
	n := len(entries)
	var starts []int
	for _, seg := range [][2]int{{0, anchor}, {anchor, n}} {
		for i := seg[0]; i < seg[1]; {
			starts = append(starts, i)
			if pairsWithNext(entries, i, seg[1]) {
				i += 2
			} else {
				i++
			}
		}
	}
	return order{entries: entries, starts: starts, anchor: anchor}
}

// pairsWithNext applies the pairing rule at i without looking at or past end
func pairsWithNext(entries []domain.PhotoEntry, i, end int) bool {
	return i+1 < end && entries[i].IsPortrait() && entries[i+1].IsPortrait()
}

// selectionFor builds the selection shown by the given slide
func (o *order) selectionFor(slide int) domain.Selection {
	start := o.starts[slide]
	end := len(o.entries)
	if start < o.anchor {
		end = o.anchor
	}
	if pairsWithNext(o.entries, start, end) {
		return domain.Pair(o.entries[start], o.entries[start+1])
	}
	return domain.Single(o.entries[start])
}

// slideOf returns the slide that shows photo index i
func (o *order) slideOf(i int) int {
	return sort.Search(len(o.starts), func(k int) bool { return o.starts[k] > i }) - 1
}

// SelectionAt applies the pairing rule at photo index i, wrapping out-of-range indices.
// It does not move the cursor.
func (f *FileSet) SelectionAt(i int) domain.Selection {
	n := len(f.cur.entries)
	i = ((i % n) + n) % n
	if pairsWithNext(f.cur.entries, i, n) {
		return domain.Pair(f.cur.entries[i], f.cur.entries[i+1])
	}
	return domain.Single(f.cur.entries[i])
}

// Current returns the slide under the cursor
func (f *FileSet) Current() domain.Selection {
	return f.cur.selectionFor(f.slide)
}

// Advance moves past the current slide: two photos for a pair, one for a single.
// After the last slide it wraps to the first. The new pass is cut from index 0
// again, so a boundary left by Seek or Replace does not outlive the wrap, and a
// random order is reshuffled if the policy asks for it.
func (f *FileSet) Advance() domain.Selection {
	if f.slide+1 < len(f.cur.starts) {
		f.slide++
		return f.Current()
	}

	old := f.cur
	switch {
	case f.next != nil:
		f.cur = *f.next
		f.next = nil
	case f.reshufflesOnWrap():
		f.cur = f.reshuffled(f.Current())
		f.logger.Debug("Slideshow wrapped, order reshuffled", zap.Int("photos", len(f.cur.entries)))
	case f.cur.anchor != 0:
		f.cur = newOrder(f.cur.entries, 0)
	default:
		// same order again; nothing to undo across this wrap
		f.prev = nil
		f.slide = 0
		return f.Current()
	}
	f.prev = &old
	f.slide = 0
	return f.Current()
}

// Retreat undoes the most recent Advance. From the first slide it wraps to the
// last one, or back into the order the last wrap replaced (reshuffled or re-cut).
func (f *FileSet) Retreat() domain.Selection {
	if f.slide > 0 {
		f.slide--
		return f.Current()
	}

	if f.prev != nil {
		newer := f.cur
		f.cur = *f.prev
		f.prev = nil
		f.next = &newer
	}
	f.slide = len(f.cur.starts) - 1
	return f.Current()
}

// Seek moves the cursor so that the slide under it starts at photo index i.
// Slides before i are recut so that none of them crosses i.
func (f *FileSet) Seek(i int) domain.Selection {
	n := len(f.cur.entries)
	i = ((i % n) + n) % n

	if f.cur.starts[f.cur.slideOf(i)] != i {
		f.cur = newOrder(f.cur.entries, i)
	}
	f.slide = f.cur.slideOf(i)
	f.prev, f.next = nil, nil
	return f.Current()
}

// Replace swaps in a rescanned collection. Random order is reapplied and the
// photo under the cursor stays current if it still exists.
func (f *FileSet) Replace(entries []domain.PhotoEntry) error {
	if len(entries) == 0 {
		return domain.ErrEmptyCollection
	}

	currentPath := f.Current().First().Path

	list := append([]domain.PhotoEntry(nil), entries...)
	if f.randomOrder {
		f.shuffle(list)
	}

	pos := -1
	for i, e := range list {
		if e.Path == currentPath {
			pos = i
			break
		}
	}

	f.prev, f.next = nil, nil
	if pos < 0 {
		f.cur = newOrder(list, 0)
		f.slide = 0
	} else {
		f.cur = newOrder(list, pos)
		f.slide = f.cur.slideOf(pos)
	}

	f.logger.Info("Photo collection replaced",
		zap.Int("photos", len(list)),
		zap.Bool("keptCurrent", pos >= 0))
	return nil
}

// Index returns the photo index where the current slide starts
func (f *FileSet) Index() int {
	return f.cur.starts[f.slide]
}

// Len returns the number of photos in the collection
func (f *FileSet) Len() int {
	return len(f.cur.entries)
}

// Slides returns the number of slides in one pass over the collection
func (f *FileSet) Slides() int {
	return len(f.cur.starts)
}

// Entries returns a copy of the collection in its current order
func (f *FileSet) Entries() []domain.PhotoEntry {
	return append([]domain.PhotoEntry(nil), f.cur.entries...)
}

// String describes the cursor position for logs
func (f *FileSet) String() string {
	return fmt.Sprintf("slide %d/%d (photo %d/%d)", f.slide+1, len(f.cur.starts), f.Index()+1, len(f.cur.entries))
}

func (f *FileSet) reshufflesOnWrap() bool {
	return f.randomOrder && f.reshuffle == config.ReshuffleOnWrap && len(f.cur.entries) > 1
}

func (f *FileSet) shuffle(list []domain.PhotoEntry) {
	f.rng.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
}

// reshuffled returns a new random order whose first photo was not part of shown,
// unless every photo was part of it
func (f *FileSet) reshuffled(shown domain.Selection) order {
	list := append([]domain.PhotoEntry(nil), f.cur.entries...)
	f.shuffle(list)

	seen := mapset.NewSet(shown.Paths()...)
	if seen.Contains(list[0].Path) {
		for j := 1; j < len(list); j++ {
			if !seen.Contains(list[j].Path) {
				list[0], list[j] = list[j], list[0]
				break
			}
		}
	}
	return newOrder(list, 0)
}
