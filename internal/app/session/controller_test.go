package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnish/raaga/internal/app/player"
	"github.com/mnish/raaga/internal/domain/track"
	"github.com/mnish/raaga/internal/infra/storage"
)

// mockEngine implements Engine with scriptable status per handle.
type mockEngine struct {
	mu      sync.Mutex
	next    int
	loadErr error
	loads   []string
	calls   []string
	status  map[int]Status
}

func newMockEngine() *mockEngine {
	return &mockEngine{status: make(map[int]Status)}
}

func (e *mockEngine) record(call string) {
	e.calls = append(e.calls, call)
}

func (e *mockEngine) Load(_ context.Context, url string) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loadErr != nil {
		return nil, e.loadErr
	}
	e.next++
	h := e.next
	e.loads = append(e.loads, url)
	e.record(fmt.Sprintf("load:%s", url))
	e.status[h] = Status{Loaded: true}
	return h, nil
}

func (e *mockEngine) Play(h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("play")
	st := e.status[h.(int)]
	st.Playing = true
	e.status[h.(int)] = st
	return nil
}

func (e *mockEngine) Pause(h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("pause")
	st := e.status[h.(int)]
	st.Playing = false
	e.status[h.(int)] = st
	return nil
}

func (e *mockEngine) Seek(h Handle, seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(fmt.Sprintf("seek:%g", seconds))
	st := e.status[h.(int)]
	st.Position = seconds
	st.Completed = false
	e.status[h.(int)] = st
	return nil
}

func (e *mockEngine) Unload(h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("unload")
	delete(e.status, h.(int))
	return nil
}

func (e *mockEngine) Status(h Handle) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status[h.(int)], nil
}

func (e *mockEngine) setStatus(h int, st Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status[h] = st
}

func (e *mockEngine) callLog() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

func (e *mockEngine) loadedURLs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.loads))
	copy(out, e.loads)
	return out
}

func playable(id, url string) track.Track {
	return track.Track{
		ID:   id,
		Name: "Track " + id,
		DownloadURLs: []track.Media{
			{Quality: "320kbps", URL: url},
		},
	}
}

func newFixture(t *testing.T) (*player.Manager, *mockEngine, *Controller) {
	t.Helper()
	m := player.NewManager(storage.NewMemStore())
	e := newMockEngine()
	c := NewController(m, e, Config{PollInterval: 10 * time.Millisecond})
	t.Cleanup(func() {
		c.Close()
		m.Close()
	})
	return m, e, c
}

func TestLoadTrack_NoPlayableResource(t *testing.T) {
	_, e, c := newFixture(t)

	err := c.LoadTrack(context.Background(), track.Track{ID: "x"})

	assert.True(t, errors.Is(err, ErrNoPlayableResource))
	assert.Empty(t, e.callLog())
	assert.Equal(t, StateIdle, c.State())
}

func TestLoadTrack_EngineRejects(t *testing.T) {
	_, e, c := newFixture(t)
	e.loadErr = errors.New("boom")

	err := c.LoadTrack(context.Background(), playable("a", "http://cdn/a"))

	assert.True(t, errors.Is(err, ErrResourceLoad))
	assert.Equal(t, StateIdle, c.State())
}

func TestLoadTrack_AutoplaysWhenManagerPlaying(t *testing.T) {
	m, e, c := newFixture(t)
	m.SetQueue([]track.Track{playable("a", "http://cdn/a")}, 0)

	err := c.LoadTrack(context.Background(), playable("a", "http://cdn/a"))
	require.NoError(t, err)

	assert.Equal(t, StatePlaying, c.State())
	assert.Equal(t, []string{"load:http://cdn/a", "play"}, e.callLog())
}

func TestLoadTrack_UnloadsPreviousBeforeNewLoad(t *testing.T) {
	m, e, c := newFixture(t)
	m.SetQueue([]track.Track{playable("a", "http://cdn/a")}, 0)

	require.NoError(t, c.LoadTrack(context.Background(), playable("a", "http://cdn/a")))
	require.NoError(t, c.LoadTrack(context.Background(), playable("b", "http://cdn/b")))

	calls := e.callLog()
	assert.Equal(t, []string{
		"load:http://cdn/a", "play",
		"unload",
		"load:http://cdn/b", "play",
	}, calls)
}

func TestPlayPause_NoResourceIsNoop(t *testing.T) {
	_, e, c := newFixture(t)

	assert.NoError(t, c.Play())
	assert.NoError(t, c.Pause())
	assert.Empty(t, e.callLog())
}

func TestPlayPause_MirrorsIntoManager(t *testing.T) {
	m, _, c := newFixture(t)
	m.SetQueue([]track.Track{playable("a", "http://cdn/a")}, 0)
	require.NoError(t, c.LoadTrack(context.Background(), playable("a", "http://cdn/a")))

	require.NoError(t, c.Pause())
	assert.Equal(t, StatePaused, c.State())
	assert.False(t, m.IsPlaying())

	require.NoError(t, c.Play())
	assert.Equal(t, StatePlaying, c.State())
	assert.True(t, m.IsPlaying())
}

func TestSeek_MirrorsPosition(t *testing.T) {
	m, e, c := newFixture(t)
	m.SetQueue([]track.Track{playable("a", "http://cdn/a")}, 0)
	require.NoError(t, c.LoadTrack(context.Background(), playable("a", "http://cdn/a")))

	require.NoError(t, c.Seek(33))

	assert.Equal(t, 33.0, m.Position())
	assert.Contains(t, e.callLog(), "seek:33")
}

func TestPoll_MirrorsPositionAndDuration(t *testing.T) {
	m, e, c := newFixture(t)
	m.SetQueue([]track.Track{playable("a", "http://cdn/a")}, 0)
	require.NoError(t, c.LoadTrack(context.Background(), playable("a", "http://cdn/a")))

	e.setStatus(1, Status{Loaded: true, Playing: true, Position: 12.5, Duration: 180})

	require.Eventually(t, func() bool {
		return m.Position() == 12.5 && m.Duration() == 180
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCompletion_RepeatOneRestartsSameResource(t *testing.T) {
	m, e, c := newFixture(t)
	m.SetQueue([]track.Track{playable("a", "http://cdn/a")}, 0)
	m.SetRepeat(player.RepeatOne)
	require.NoError(t, c.LoadTrack(context.Background(), playable("a", "http://cdn/a")))

	e.setStatus(1, Status{Loaded: true, Position: 180, Duration: 180, Completed: true})

	require.Eventually(t, func() bool {
		calls := e.callLog()
		for _, call := range calls {
			if call == "seek:0" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	// Same resource: no second load, no unload
	assert.Equal(t, []string{"http://cdn/a"}, e.loadedURLs())
	assert.Equal(t, 0, m.CurrentIndex())
	assert.Equal(t, StatePlaying, c.State())
}

func TestCompletion_AutoAdvancesThroughRunLoop(t *testing.T) {
	m, e, c := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	m.SetQueue([]track.Track{
		playable("a", "http://cdn/a"),
		playable("b", "http://cdn/b"),
	}, 0)

	require.Eventually(t, func() bool {
		urls := e.loadedURLs()
		return len(urls) == 1 && urls[0] == "http://cdn/a"
	}, 2*time.Second, 5*time.Millisecond)

	e.setStatus(1, Status{Loaded: true, Position: 200, Duration: 200, Completed: true})

	require.Eventually(t, func() bool {
		urls := e.loadedURLs()
		return len(urls) == 2 && urls[1] == "http://cdn/b"
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, m.CurrentIndex())
}

func TestCompletion_QueueExhaustedStops(t *testing.T) {
	m, e, c := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	m.SetQueue([]track.Track{playable("a", "http://cdn/a")}, 0)

	require.Eventually(t, func() bool {
		return len(e.loadedURLs()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	e.setStatus(1, Status{Loaded: true, Position: 90, Duration: 90, Completed: true})

	require.Eventually(t, func() bool {
		return c.State() == StateIdle
	}, 2*time.Second, 5*time.Millisecond)

	assert.False(t, m.IsPlaying())
	assert.Contains(t, e.callLog(), "unload")
	// Terminal condition, not a skip: index stays on the last track
	assert.Equal(t, 0, m.CurrentIndex())
}

func TestReconcile_StaleGenerationDiscarded(t *testing.T) {
	m, e, c := newFixture(t)
	m.SetQueue([]track.Track{playable("a", "http://cdn/a")}, 0)
	require.NoError(t, c.LoadTrack(context.Background(), playable("a", "http://cdn/a")))

	c.mu.Lock()
	oldGen := c.generation
	oldHandle := c.handle
	c.mu.Unlock()

	require.NoError(t, c.LoadTrack(context.Background(), playable("b", "http://cdn/b")))

	// Park the live poll loop so only the stale reconcile below can write
	e.setStatus(2, Status{Loaded: false})
	e.setStatus(1, Status{Loaded: true, Position: 55, Duration: 100})
	m.SetPosition(7)

	keep := c.reconcile(oldGen, oldHandle)

	assert.False(t, keep, "stale poll loop must stop")
	assert.Equal(t, 7.0, m.Position(), "stale status must not be applied")
}
