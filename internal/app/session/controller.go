package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/mnish/raaga/internal/app/player"
	"github.com/mnish/raaga/internal/domain/track"
)

// Errors surfaced across the engine boundary.
var (
	// ErrNoPlayableResource means a track carries no usable media locator.
	ErrNoPlayableResource = errors.New("track has no playable resource")
	// ErrResourceLoad means the engine rejected the resource.
	ErrResourceLoad = errors.New("engine failed to load resource")
)

// Config holds controller configuration.
type Config struct {
	QualityPreference []string      // download quality order, best first
	PollInterval      time.Duration // engine status poll period
}

// Controller keeps the engine synchronized with the player state manager.
//
// It owns at most one loaded engine handle at a time. Every load bumps a
// generation counter; status reports carrying a stale generation are
// discarded, so a superseded load can never write position for the wrong
// track.
type Controller struct {
	mu sync.Mutex

	manager *player.Manager
	engine  Engine
	config  Config

	state      State
	handle     Handle
	generation uint64
	pollCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController creates a session controller for the given manager and engine.
func NewController(manager *player.Manager, engine Engine, config Config) *Controller {
	if config.PollInterval <= 0 {
		config.PollInterval = 500 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		manager: manager,
		engine:  engine,
		config:  config,
		state:   StateIdle,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close stops polling, unloads any resource and releases the controller.
func (c *Controller) Close() {
	c.cancel()
	c.Stop()
	c.wg.Wait()
}

// Run consumes player state events until ctx is cancelled. This is the
// reaction loop that turns state mutations into engine commands; without
// it the controller is inert.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		case ev := <-c.manager.Events():
			c.handleEvent(ctx, ev)
		}
	}
}

func (c *Controller) handleEvent(ctx context.Context, ev player.Event) {
	switch ev.Type {
	case player.EventTrackChanged:
		if ev.Track == nil {
			c.Stop()
			return
		}
		if err := c.LoadTrack(ctx, *ev.Track); err != nil {
			zlog.Error().Err(err).Str("track", ev.Track.ID).Msg("session: failed to load track")
		}
	case player.EventPlayStateChanged:
		var err error
		if ev.Playing {
			err = c.Play()
		} else {
			err = c.Pause()
		}
		if err != nil {
			zlog.Error().Err(err).Msg("session: transport command failed")
		}
	case player.EventQueueEnded:
		c.Stop()
	}
}

// LoadTrack selects the best media resource for the track and loads it,
// unloading the previous resource first. Returns ErrNoPlayableResource when
// the track has no usable locator and ErrResourceLoad when the engine
// rejects it; in both cases the previous player state is left intact.
func (c *Controller) LoadTrack(ctx context.Context, t track.Track) error {
	url, ok := t.BestDownloadURL(c.config.QualityPreference)
	if !ok {
		return errors.WithDetailf(ErrNoPlayableResource, "track=%s", t.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The previous resource and its poll loop must be fully torn down
	// before the new load: at most one loaded resource at a time.
	c.stopPollLocked()
	c.unloadLocked()

	c.generation++
	gen := c.generation
	c.state = StateLoading

	zlog.Debug().Str("track", t.ID).Str("name", t.Name).Msg("session: loading resource")

	h, err := c.engine.Load(ctx, url)
	if err != nil {
		c.state = StateIdle
		return errors.Mark(errors.Wrapf(err, "failed to load resource for track %q", t.ID), ErrResourceLoad)
	}

	c.handle = h
	c.state = StateReady
	c.startPollLocked(gen, h)

	if c.manager.IsPlaying() {
		if err := c.engine.Play(h); err != nil {
			return errors.Wrap(err, "failed to start playback")
		}
		c.state = StatePlaying
	}

	return nil
}

// Play issues a play command. A missing resource is a warned no-op.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle == nil {
		zlog.Warn().Msg("session: play with no loaded resource")
		return nil
	}
	if err := c.engine.Play(c.handle); err != nil {
		return errors.Wrap(err, "play command failed")
	}
	c.state = StatePlaying
	c.manager.SyncPlaying(true)
	return nil
}

// Pause issues a pause command. A missing resource is a warned no-op.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle == nil {
		zlog.Warn().Msg("session: pause with no loaded resource")
		return nil
	}
	if err := c.engine.Pause(c.handle); err != nil {
		return errors.Wrap(err, "pause command failed")
	}
	c.state = StatePaused
	c.manager.SyncPlaying(false)
	return nil
}

// Seek commands the engine to the given position, then mirrors it into the
// player state.
func (c *Controller) Seek(seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle == nil {
		zlog.Warn().Msg("session: seek with no loaded resource")
		return nil
	}
	if err := c.engine.Seek(c.handle, seconds); err != nil {
		return errors.Wrap(err, "seek command failed")
	}
	c.manager.SetPosition(seconds)
	return nil
}

// Stop stops polling, unloads the current resource and goes idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopPollLocked()
	c.unloadLocked()
	c.generation++ // invalidate any in-flight status report
	c.state = StateIdle
	c.manager.SyncPlaying(false)
}

// unloadLocked releases the current handle. Must be called with the lock held.
func (c *Controller) unloadLocked() {
	if c.handle == nil {
		return
	}
	if err := c.engine.Unload(c.handle); err != nil {
		zlog.Warn().Err(err).Msg("session: failed to unload resource")
	}
	c.handle = nil
}

// startPollLocked starts the status poll loop for one generation.
// Must be called with the lock held.
func (c *Controller) startPollLocked(gen uint64, h Handle) {
	ctx, cancel := context.WithCancel(c.ctx)
	c.pollCancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.config.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !c.reconcile(gen, h) {
					return
				}
			}
		}
	}()
}

// stopPollLocked cancels the running poll loop, if any. Must be called with
// the lock held.
func (c *Controller) stopPollLocked() {
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
}

// reconcile folds one engine status report into player state. Returns false
// when the poll loop should stop. Reports for a superseded generation are
// discarded.
func (c *Controller) reconcile(gen uint64, h Handle) bool {
	st, err := c.engine.Status(h)

	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer load owns the state now; this report is stale.
	if gen != c.generation {
		return false
	}
	if err != nil {
		zlog.Warn().Err(err).Msg("session: status poll failed")
		return true
	}
	if !st.Loaded {
		return true
	}

	c.manager.SetPosition(st.Position)
	c.manager.SetDuration(st.Duration)

	if st.Completed {
		return c.onCompletedLocked(gen, h)
	}
	return true
}

// onCompletedLocked handles the terminal completion of the loaded resource.
// Must be called with the lock held; returns whether the current poll loop
// should keep running.
func (c *Controller) onCompletedLocked(gen uint64, h Handle) bool {
	if c.manager.Repeat() == player.RepeatOne {
		// Restart the same resource, no reload.
		if err := c.engine.Seek(h, 0); err != nil {
			zlog.Error().Err(err).Msg("session: repeat-one restart seek failed")
			return false
		}
		if err := c.engine.Play(h); err != nil {
			zlog.Error().Err(err).Msg("session: repeat-one restart play failed")
			return false
		}
		c.state = StatePlaying
		c.manager.SetPosition(0)
		return true
	}

	// Advance the queue; the resulting event drives the next load (or the
	// stop when the queue is exhausted) through the run loop.
	c.manager.NextSong()
	return false
}
