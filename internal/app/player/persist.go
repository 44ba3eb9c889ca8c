package player

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/mnish/raaga/internal/domain/track"
	"github.com/mnish/raaga/internal/infra/storage"
)

// persistedState is the durable subset of player state. Position, duration
// and the playing flag are live values and intentionally not persisted.
type persistedState struct {
	Queue        []track.Track `json:"queue"`
	CurrentIndex int           `json:"currentIndex"`
	Shuffle      bool          `json:"shuffle"`
	Repeat       RepeatMode    `json:"repeat"`
}

// snapshotLocked captures the durable state. Must be called with the lock held.
func (m *Manager) snapshotLocked() persistedState {
	queue := make([]track.Track, len(m.queue))
	copy(queue, m.queue)
	return persistedState{
		Queue:        queue,
		CurrentIndex: m.currentIndex,
		Shuffle:      m.shuffle,
		Repeat:       m.repeat,
	}
}

// enqueueSaveLocked hands the latest snapshot to the background writer.
// The channel holds at most one pending snapshot; a newer one replaces it,
// so bursts of mutations collapse into a single write.
func (m *Manager) enqueueSaveLocked() {
	snap := m.snapshotLocked()
	for {
		select {
		case m.saveCh <- snap:
			return
		default:
		}
		select {
		case <-m.saveCh:
		default:
		}
	}
}

// runWriter drains the save channel until the manager is closed. Write
// failures are logged and swallowed; in-memory state is the source of truth.
func (m *Manager) runWriter() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case snap := <-m.saveCh:
			if err := m.write(snap); err != nil {
				zlog.Warn().Err(err).Msg("player: failed to persist state")
			}
		}
	}
}

func (m *Manager) write(snap persistedState) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "failed to marshal player state")
	}
	return m.store.Set(storage.KeyPlayer, data)
}

// Save writes the current durable state synchronously.
func (m *Manager) Save() error {
	m.mu.RLock()
	snap := m.snapshotLocked()
	m.mu.RUnlock()
	return m.write(snap)
}

// Load restores the durable state from the store and recomputes the current
// track. Missing or corrupt data leaves the manager at defaults; failures
// are logged, never surfaced.
func (m *Manager) Load() {
	data, err := m.store.Get(storage.KeyPlayer)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			zlog.Warn().Err(err).Msg("player: failed to load persisted state")
		}
		return
	}

	var snap persistedState
	if err := json.Unmarshal(data, &snap); err != nil {
		zlog.Warn().Err(err).Msg("player: discarding corrupt persisted state")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = snap.Queue
	if m.queue == nil {
		m.queue = make([]track.Track, 0)
	}
	m.currentIndex = snap.CurrentIndex
	m.shuffle = snap.Shuffle
	if snap.Repeat.IsValid() {
		m.repeat = snap.Repeat
	} else {
		m.repeat = RepeatNone
	}
	m.refreshCurrentLocked()
}
