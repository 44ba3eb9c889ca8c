package player

import (
	"context"
	"math/rand"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/mnish/raaga/internal/domain/track"
	"github.com/mnish/raaga/internal/infra/storage"
)

// Manager owns the authoritative queue and playback-control state.
//
// All mutations keep the queue invariants intact: currentIndex is -1 or a
// valid index, an empty queue always means index -1 and no current track,
// and the cached current track always equals queue[currentIndex]. Index
// arguments that are out of range are clamped or ignored, never errors.
type Manager struct {
	mu sync.RWMutex

	queue        []track.Track
	currentIndex int
	current      *track.Track // cache of queue[currentIndex], nil when index is -1

	playing  bool
	position float64
	duration float64
	shuffle  bool
	repeat   RepeatMode

	store   storage.Store
	saveCh  chan persistedState
	eventCh chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	randIntn func(n int) int
}

// NewManager creates a player state manager backed by the given store and
// starts its background persistence writer.
func NewManager(store storage.Store) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		queue:        make([]track.Track, 0),
		currentIndex: -1,
		repeat:       RepeatNone,
		store:        store,
		saveCh:       make(chan persistedState, 1),
		eventCh:      make(chan Event, 16),
		ctx:          ctx,
		cancel:       cancel,
		randIntn:     rand.Intn,
	}
	m.wg.Add(1)
	go m.runWriter()
	return m
}

// Events returns the state change event channel.
func (m *Manager) Events() <-chan Event {
	return m.eventCh
}

// Close stops the background writer and flushes the latest state.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
	if err := m.Save(); err != nil {
		zlog.Warn().Err(err).Msg("player: final state flush failed")
	}
}

// SetQueue replaces the queue wholesale. A non-empty queue starts playback
// of the track at startIndex (clamped into range) from position zero. An
// empty queue clears the current track and stops playback.
func (m *Manager) SetQueue(tracks []track.Track, startIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = make([]track.Track, len(tracks))
	copy(m.queue, tracks)

	if len(m.queue) == 0 {
		m.currentIndex = -1
		m.current = nil
		m.playing = false
		m.position = 0
		m.sendEventLocked(Event{Type: EventTrackChanged, Playing: false})
		m.enqueueSaveLocked()
		return
	}

	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex > len(m.queue)-1 {
		startIndex = len(m.queue) - 1
	}

	m.currentIndex = startIndex
	m.refreshCurrentLocked()
	m.playing = true
	m.position = 0

	m.sendEventLocked(Event{Type: EventTrackChanged, Track: m.current, Playing: true})
	m.enqueueSaveLocked()
}

// AddToQueue appends a track to the end of the queue without touching the
// current index or playback state.
func (m *Manager) AddToQueue(t track.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = append(m.queue, t)
	m.enqueueSaveLocked()
}

// RemoveFromQueue removes the element at index. Removing before the current
// track shifts the index left; removing the current track keeps playback on
// whatever now occupies that slot (clamped to the new tail, or cleared when
// the queue becomes empty). Out-of-range indexes are ignored.
func (m *Manager) RemoveFromQueue(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.queue) {
		return
	}

	removedCurrent := index == m.currentIndex
	m.queue = append(m.queue[:index], m.queue[index+1:]...)

	switch {
	case index < m.currentIndex:
		m.currentIndex--
		m.refreshCurrentLocked()
	case removedCurrent:
		if m.currentIndex > len(m.queue)-1 {
			m.currentIndex = len(m.queue) - 1
		}
		m.refreshCurrentLocked()
		m.sendEventLocked(Event{Type: EventTrackChanged, Track: m.current, Playing: m.playing})
	}

	m.enqueueSaveLocked()
}

// ReorderQueue moves the element at fromIndex to toIndex, shifting the
// elements in between. The current marker follows the same logical track.
func (m *Manager) ReorderQueue(fromIndex, toIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.queue)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n || fromIndex == toIndex {
		return
	}

	moved := m.queue[fromIndex]
	m.queue = append(m.queue[:fromIndex], m.queue[fromIndex+1:]...)
	m.queue = append(m.queue[:toIndex], append([]track.Track{moved}, m.queue[toIndex:]...)...)

	switch {
	case fromIndex == m.currentIndex:
		m.currentIndex = toIndex
	case fromIndex < m.currentIndex && toIndex >= m.currentIndex:
		m.currentIndex--
	case fromIndex > m.currentIndex && toIndex <= m.currentIndex:
		m.currentIndex++
	}
	m.refreshCurrentLocked()

	m.enqueueSaveLocked()
}

// NextSong advances to the next track. With shuffle on the next index is a
// uniform random draw over the whole queue. At the end of the queue repeat
// "all" wraps to the start; otherwise playback stops and the index stays put.
func (m *Manager) NextSong() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.advanceLocked(1)
}

// PreviousSong retreats to the previous track, with the same shuffle and
// repeat policy as NextSong in the backward direction.
func (m *Manager) PreviousSong() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.advanceLocked(-1)
}

func (m *Manager) advanceLocked(step int) {
	n := len(m.queue)
	if n == 0 {
		return
	}

	var next int
	if m.shuffle {
		// Uniform draw; the current track is not excluded, so immediate
		// repeats are possible.
		next = m.randIntn(n)
	} else {
		next = m.currentIndex + step
		if next >= n || next < 0 {
			if m.repeat == RepeatAll {
				if step > 0 {
					next = 0
				} else {
					next = n - 1
				}
			} else {
				m.playing = false
				m.sendEventLocked(Event{Type: EventQueueEnded, Track: m.current, Playing: false})
				m.enqueueSaveLocked()
				return
			}
		}
	}

	m.currentIndex = next
	m.refreshCurrentLocked()
	m.position = 0

	m.sendEventLocked(Event{Type: EventTrackChanged, Track: m.current, Playing: m.playing})
	m.enqueueSaveLocked()
}

// TogglePlayPause flips the playing flag. The session controller reacts to
// the resulting event; this never talks to the engine directly.
func (m *Manager) TogglePlayPause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.playing = !m.playing
	m.sendEventLocked(Event{Type: EventPlayStateChanged, Track: m.current, Playing: m.playing})
	m.enqueueSaveLocked()
}

// SetPlaying sets the playing flag from a user action.
func (m *Manager) SetPlaying(playing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playing == playing {
		return
	}
	m.playing = playing
	m.sendEventLocked(Event{Type: EventPlayStateChanged, Track: m.current, Playing: m.playing})
	m.enqueueSaveLocked()
}

// SyncPlaying mirrors an engine-reported playing flag into the state
// without emitting events or persisting, so reconciliation cannot feed
// back into the session controller.
func (m *Manager) SyncPlaying(playing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = playing
}

// SetPosition mirrors an engine-reported position. Transient, not persisted.
func (m *Manager) SetPosition(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	m.position = seconds
}

// SetDuration mirrors an engine-reported duration. Transient, not persisted.
func (m *Manager) SetDuration(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	m.duration = seconds
}

// Seek sets the position directly. The session controller is responsible
// for commanding the engine before mirroring the value here.
func (m *Manager) Seek(seconds float64) {
	m.SetPosition(seconds)
}

// ToggleShuffle flips shuffle mode.
func (m *Manager) ToggleShuffle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shuffle = !m.shuffle
	m.enqueueSaveLocked()
}

// SetRepeat sets the repeat mode. Unknown modes are ignored.
func (m *Manager) SetRepeat(mode RepeatMode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !mode.IsValid() {
		zlog.Warn().Str("mode", string(mode)).Msg("player: ignoring unknown repeat mode")
		return
	}
	m.repeat = mode
	m.enqueueSaveLocked()
}

// CurrentTrack returns the current track, if any.
func (m *Manager) CurrentTrack() (track.Track, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return track.Track{}, false
	}
	return *m.current, true
}

// CurrentIndex returns the current queue index (-1 when nothing selected).
func (m *Manager) CurrentIndex() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentIndex
}

// Queue returns a copy of the queue.
func (m *Manager) Queue() []track.Track {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]track.Track, len(m.queue))
	copy(out, m.queue)
	return out
}

// QueueLen returns the number of tracks in the queue.
func (m *Manager) QueueLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.queue)
}

// IsPlaying returns the playing flag.
func (m *Manager) IsPlaying() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playing
}

// Position returns the last known position in seconds.
func (m *Manager) Position() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.position
}

// Duration returns the last known duration in seconds (0 = unknown).
func (m *Manager) Duration() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.duration
}

// Shuffle returns the shuffle flag.
func (m *Manager) Shuffle() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shuffle
}

// Repeat returns the repeat mode.
func (m *Manager) Repeat() RepeatMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.repeat
}

// refreshCurrentLocked recomputes the cached current track from the queue
// and index. Must be called with the lock held after any queue or index
// mutation.
func (m *Manager) refreshCurrentLocked() {
	if m.currentIndex < 0 || m.currentIndex >= len(m.queue) {
		m.currentIndex = -1
		m.current = nil
		return
	}
	t := m.queue[m.currentIndex]
	m.current = &t
}

// sendEventLocked sends an event without blocking. Must be called with the
// lock held.
func (m *Manager) sendEventLocked(e Event) {
	select {
	case m.eventCh <- e:
	case <-m.ctx.Done():
	default:
		// Channel full, drop event
	}
}
