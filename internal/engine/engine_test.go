package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/genricoloni/veloframe/internal/domain"
	"github.com/genricoloni/veloframe/internal/layout"
	"github.com/genricoloni/veloframe/internal/photoset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockConfig struct {
	displayTime      time.Duration
	transitionTime   time.Duration
	transitionFrames int
	rescanInterval   time.Duration
	showClock        bool
}

func (m *mockConfig) GetPhotosDirectory() string       { return "/photos" }
func (m *mockConfig) GetDisplayTime() time.Duration    { return m.displayTime }
func (m *mockConfig) GetTransitionTime() time.Duration { return m.transitionTime }
func (m *mockConfig) GetTransitionFrames() int         { return m.transitionFrames }
func (m *mockConfig) GetRescanInterval() time.Duration { return m.rescanInterval }
func (m *mockConfig) GetOutputDir() string             { return "/tmp/veloframe-test" }
func (m *mockConfig) ShowClock() bool                  { return m.showClock }

type fakeComposer struct {
	mu       sync.Mutex
	composed []string // first photo of every composed frame
	alphas   []float64
	failing  map[string]bool
	failAll  bool
}

func (f *fakeComposer) Compose(ctx context.Context, frame domain.Frame) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := frame.Slots[0].Entry.Path
	f.composed = append(f.composed, path)
	if f.failAll || f.failing[path] {
		return nil, fmt.Errorf("cannot decode %s", path)
	}
	return image.NewRGBA(frame.Screen.Bounds()), nil
}

func (f *fakeComposer) Blend(from, to image.Image, alpha float64) image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alphas = append(f.alphas, alpha)
	return to
}

func (f *fakeComposer) snapshot() ([]string, []float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.composed...), append([]float64(nil), f.alphas...)
}

type fakeWriter struct {
	mu sync.Mutex
	n  int
}

func (f *fakeWriter) Write(img image.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return fmt.Sprintf("/frames/frame-%d.jpg", f.n), nil
}

type fakePresenter struct {
	mu         sync.Mutex
	shown      []string
	current    string
	currentErr error
}

func (f *fakePresenter) Present(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, path)
	return nil
}

func (f *fakePresenter) Current(ctx context.Context) (string, error) {
	return f.current, f.currentErr
}

func (f *fakePresenter) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.shown...)
}

type fakeScanner struct {
	entries []domain.PhotoEntry
	err     error
}

func (f *fakeScanner) Scan(ctx context.Context, dir string) ([]domain.PhotoEntry, error) {
	return f.entries, f.err
}

func landscape(name string) domain.PhotoEntry {
	return domain.PhotoEntry{Path: "/photos/" + name, Width: 400, Height: 300}
}

type harness struct {
	engine    *Engine
	nav       *photoset.FileSet
	composer  *fakeComposer
	writer    *fakeWriter
	presenter *fakePresenter
	scanner   *fakeScanner
	commands  chan domain.Command
}

func newHarness(t *testing.T, cfg *mockConfig, entries ...domain.PhotoEntry) *harness {
	t.Helper()
	if len(entries) == 0 {
		entries = []domain.PhotoEntry{landscape("a.jpg"), landscape("b.jpg"), landscape("c.jpg")}
	}
	nav, err := photoset.New(zap.NewNop(), entries)
	require.NoError(t, err)

	h := &harness{
		nav:       nav,
		composer:  &fakeComposer{failing: map[string]bool{}},
		writer:    &fakeWriter{},
		presenter: &fakePresenter{current: "/home/me/bg.png"},
		scanner:   &fakeScanner{},
		commands:  make(chan domain.Command, 10),
	}
	h.engine = NewEngine(
		zap.NewNop(),
		cfg,
		nav,
		h.scanner,
		layout.NewPreparationManager(zap.NewNop()),
		h.composer,
		h.writer,
		h.presenter,
		domain.ScreenResolution{Width: 320, Height: 180},
		h.commands,
	)
	return h
}

// withTimer prepares the engine for calling loop handlers directly
func (h *harness) withTimer() *harness {
	h.engine.timer = time.NewTimer(time.Hour)
	return h
}

func TestEngine_StartShowsFirstSlideAndStopRestores(t *testing.T) {
	h := newHarness(t, &mockConfig{displayTime: time.Hour, transitionTime: 30 * time.Millisecond, transitionFrames: 3})

	require.NoError(t, h.engine.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(h.presenter.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.engine.Stop(context.Background()))

	composed, alphas := h.composer.snapshot()
	assert.Equal(t, []string{"/photos/a.jpg"}, composed)
	assert.Empty(t, alphas, "first slide must not cross-fade")
	assert.Equal(t, []string{"/frames/frame-1.jpg", "/home/me/bg.png"}, h.presenter.snapshot())
}

func TestEngine_StopWithoutOriginalBackground(t *testing.T) {
	h := newHarness(t, &mockConfig{displayTime: time.Hour})
	h.presenter.currentErr = errors.New("not supported")

	require.NoError(t, h.engine.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(h.presenter.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.engine.Stop(context.Background()))

	assert.Equal(t, []string{"/frames/frame-1.jpg"}, h.presenter.snapshot())
}

func TestEngine_AutoAdvance(t *testing.T) {
	h := newHarness(t, &mockConfig{displayTime: 10 * time.Millisecond})

	require.NoError(t, h.engine.Start(context.Background()))
	assert.Eventually(t, func() bool {
		composed, _ := h.composer.snapshot()
		return len(composed) >= 4
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, h.engine.Stop(context.Background()))

	composed, _ := h.composer.snapshot()
	assert.Equal(t, []string{"/photos/a.jpg", "/photos/b.jpg", "/photos/c.jpg", "/photos/a.jpg"}, composed[:4])
}

func TestEngine_CommandsFromChannel(t *testing.T) {
	h := newHarness(t, &mockConfig{displayTime: time.Hour})
	quit := make(chan struct{})
	h.engine.OnQuit(func() { close(quit) })

	require.NoError(t, h.engine.Start(context.Background()))
	h.commands <- domain.CmdNextImmediate
	h.commands <- domain.CmdQuit

	select {
	case <-quit:
	case <-time.After(2 * time.Second):
		t.Fatal("quit command was not handled")
	}
	require.NoError(t, h.engine.Stop(context.Background()))

	composed, _ := h.composer.snapshot()
	assert.Equal(t, []string{"/photos/a.jpg", "/photos/b.jpg"}, composed)
}

func TestEngine_Navigation(t *testing.T) {
	tests := []struct {
		name           string
		commands       []domain.Command
		expectedLast   string
		expectedAlphas []float64
	}{
		{
			name:           "Next Cross-Fades",
			commands:       []domain.Command{domain.CmdNext},
			expectedLast:   "/photos/b.jpg",
			expectedAlphas: []float64{0.25, 0.5, 0.75},
		},
		{
			name:         "Next Immediate",
			commands:     []domain.Command{domain.CmdNextImmediate},
			expectedLast: "/photos/b.jpg",
		},
		{
			name:           "Previous Wraps To Last",
			commands:       []domain.Command{domain.CmdPrevious},
			expectedLast:   "/photos/c.jpg",
			expectedAlphas: []float64{0.25, 0.5, 0.75},
		},
		{
			name:         "Next Then Previous Immediate",
			commands:     []domain.Command{domain.CmdNextImmediate, domain.CmdPreviousImmediate},
			expectedLast: "/photos/a.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &mockConfig{displayTime: time.Hour, transitionTime: 4 * time.Millisecond, transitionFrames: 3}).withTimer()
			ctx := context.Background()

			require.True(t, h.engine.step(ctx, h.nav.Current(), h.nav.Advance, true))
			for _, cmd := range tt.commands {
				h.engine.handleCommand(ctx, cmd)
			}

			composed, alphas := h.composer.snapshot()
			assert.Equal(t, tt.expectedLast, composed[len(composed)-1])
			if tt.expectedAlphas == nil {
				assert.Empty(t, alphas)
			} else {
				assert.InDeltaSlice(t, tt.expectedAlphas, alphas, 1e-9)
			}

			// every blended and final frame is presented
			assert.Len(t, h.presenter.snapshot(), 1+len(tt.commands)+len(alphas))
		})
	}
}

func TestEngine_SkipsBrokenSlide(t *testing.T) {
	h := newHarness(t, &mockConfig{displayTime: time.Hour}).withTimer()
	h.composer.failing["/photos/a.jpg"] = true

	ok := h.engine.step(context.Background(), h.nav.Current(), h.nav.Advance, true)

	assert.True(t, ok)
	composed, _ := h.composer.snapshot()
	assert.Equal(t, []string{"/photos/a.jpg", "/photos/b.jpg"}, composed)
	assert.Equal(t, 0, h.engine.failures)
}

func TestEngine_GivesUpAfterTooManyFailures(t *testing.T) {
	h := newHarness(t, &mockConfig{displayTime: time.Hour}).withTimer()
	h.composer.failAll = true
	ctx := context.Background()

	assert.False(t, h.engine.step(ctx, h.nav.Current(), h.nav.Advance, true))
	composed, _ := h.composer.snapshot()
	assert.Len(t, composed, maxConsecutiveFailures+1)

	assert.Equal(t, 0, h.engine.failures)

	// the next tick gets the full skip budget again
	assert.False(t, h.engine.step(ctx, h.nav.Advance(), h.nav.Advance, false))
	composed, _ = h.composer.snapshot()
	assert.Len(t, composed, 2*(maxConsecutiveFailures+1))
	assert.Empty(t, h.presenter.snapshot())

	// one success resets the count
	h.composer.failAll = false
	assert.True(t, h.engine.step(ctx, h.nav.Advance(), h.nav.Advance, false))
	assert.Equal(t, 0, h.engine.failures)
	assert.Len(t, h.presenter.snapshot(), 1)
}

func TestEngine_TogglePause(t *testing.T) {
	h := newHarness(t, &mockConfig{displayTime: 10 * time.Millisecond}).withTimer()
	ctx := context.Background()

	h.engine.handleCommand(ctx, domain.CmdTogglePause)
	require.True(t, h.engine.paused)
	select {
	case <-h.engine.timer.C:
		t.Fatal("timer fired while paused")
	case <-time.After(50 * time.Millisecond):
	}

	h.engine.handleCommand(ctx, domain.CmdTogglePause)
	require.False(t, h.engine.paused)
	select {
	case <-h.engine.timer.C:
	case <-time.After(time.Second):
		t.Fatal("timer not restarted after resume")
	}
}

func TestEngine_Rescan(t *testing.T) {
	t.Run("Current Photo Removed", func(t *testing.T) {
		h := newHarness(t, &mockConfig{displayTime: time.Hour}).withTimer()
		ctx := context.Background()
		require.True(t, h.engine.step(ctx, h.nav.Current(), h.nav.Advance, true))

		h.scanner.entries = []domain.PhotoEntry{landscape("d.jpg"), landscape("e.jpg")}
		h.engine.handleCommand(ctx, domain.CmdRescan)

		assert.Equal(t, 2, h.nav.Len())
		composed, _ := h.composer.snapshot()
		assert.Equal(t, []string{"/photos/a.jpg", "/photos/d.jpg"}, composed)
	})

	t.Run("Current Photo Kept", func(t *testing.T) {
		h := newHarness(t, &mockConfig{displayTime: time.Hour}).withTimer()
		ctx := context.Background()
		require.True(t, h.engine.step(ctx, h.nav.Current(), h.nav.Advance, true))

		h.scanner.entries = []domain.PhotoEntry{landscape("a.jpg"), landscape("z.jpg")}
		h.engine.rescan(ctx)

		assert.Equal(t, 2, h.nav.Len())
		composed, _ := h.composer.snapshot()
		assert.Len(t, composed, 1, "unchanged slide is not redrawn")
	})

	t.Run("Scan Fails", func(t *testing.T) {
		h := newHarness(t, &mockConfig{displayTime: time.Hour}).withTimer()
		h.scanner.err = domain.ErrEmptyCollection

		h.engine.rescan(context.Background())

		assert.Equal(t, 3, h.nav.Len())
	})
}

func TestEngine_RefreshRedrawsWithoutTransition(t *testing.T) {
	h := newHarness(t, &mockConfig{displayTime: time.Hour, transitionTime: 4 * time.Millisecond, transitionFrames: 2, showClock: true}).withTimer()
	ctx := context.Background()
	require.True(t, h.engine.step(ctx, h.nav.Current(), h.nav.Advance, true))

	h.engine.refresh(ctx)

	composed, alphas := h.composer.snapshot()
	assert.Equal(t, []string{"/photos/a.jpg", "/photos/a.jpg"}, composed)
	assert.Empty(t, alphas)
}

func TestUntilNextMinute(t *testing.T) {
	tests := []struct {
		now      time.Time
		expected time.Duration
	}{
		{time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), time.Minute},
		{time.Date(2024, 1, 1, 10, 0, 45, 0, time.UTC), 15 * time.Second},
		{time.Date(2024, 1, 1, 23, 59, 59, 500000000, time.UTC), 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.now.Format(time.TimeOnly), func(t *testing.T) {
			assert.Equal(t, tt.expected, untilNextMinute(tt.now))
		})
	}
}
