// Package engine provides the beep-backed audio engine.
package engine

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/mitchellh/mapstructure"

	"github.com/mnish/raaga/internal/app/session"
)

// Settings holds engine tuning knobs, decoded from the engine config map.
type Settings struct {
	SampleRate int `mapstructure:"sample_rate"`
	BufferMs   int `mapstructure:"buffer_ms"`
}

// Engine decodes and plays MP3 resources fetched over HTTP using beep.
// It implements session.Engine.
type Engine struct {
	mu sync.Mutex

	httpClient  *http.Client
	sampleRate  beep.SampleRate
	bufferMs    int
	initialized bool
}

// New creates an engine from a raw settings map.
func New(settings map[string]any) (*Engine, error) {
	var s Settings
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &s,
	})
	if err != nil {
		return nil, err
	}
	if settings != nil {
		if err := dec.Decode(settings); err != nil {
			return nil, errors.Wrap(err, "invalid engine settings")
		}
	}
	if s.SampleRate <= 0 {
		s.SampleRate = 44100
	}
	if s.BufferMs <= 0 {
		s.BufferMs = 100
	}

	return &Engine{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sampleRate: beep.SampleRate(s.SampleRate),
		bufferMs:   s.BufferMs,
	}, nil
}

// resource is one loaded media resource.
type resource struct {
	mu sync.Mutex

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	closed   bool

	// Written by the completion callback on the audio thread, so these
	// live outside r.mu.
	active    atomic.Bool // sequence currently queued on the speaker
	completed atomic.Bool
}

// markDone records that the queued sequence drained. beep invokes callbacks
// on the audio thread with the speaker mutex held, so this must not take
// r.mu: Status and the transport methods hold r.mu while waiting on the
// speaker mutex, and taking r.mu here would deadlock both.
func (r *resource) markDone() {
	r.completed.Store(true)
	r.active.Store(false)
}

// Load fetches the resource into memory and prepares it for playback.
func (e *Engine) Load(ctx context.Context, url string) (session.Handle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build resource request")
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch resource")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("resource fetch returned %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read resource body")
	}

	streamer, format, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode resource")
	}

	if err := e.ensureSpeaker(); err != nil {
		_ = streamer.Close()
		return nil, err
	}

	resampled := beep.Resample(4, format.SampleRate, e.sampleRate, streamer)
	return &resource{
		streamer: streamer,
		format:   format,
		ctrl:     &beep.Ctrl{Streamer: resampled, Paused: true},
	}, nil
}

// Play starts or resumes playback of the resource.
func (e *Engine) Play(h session.Handle) error {
	r, err := asResource(h)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("resource is unloaded")
	}

	if !r.active.Load() {
		// First start, or restart after the sequence drained.
		r.completed.Store(false)
		r.active.Store(true)
		speaker.Play(beep.Seq(r.ctrl, beep.Callback(r.markDone)))
	}

	speaker.Lock()
	r.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause pauses playback of the resource.
func (e *Engine) Pause(h session.Handle) error {
	r, err := asResource(h)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("resource is unloaded")
	}
	speaker.Lock()
	r.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

// Seek moves the resource to the given position in seconds.
func (e *Engine) Seek(h session.Handle, seconds float64) error {
	r, err := asResource(h)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("resource is unloaded")
	}

	pos := int(seconds * float64(r.format.SampleRate))
	if pos < 0 {
		pos = 0
	}
	if max := r.streamer.Len() - 1; max >= 0 && pos > max {
		pos = max
	}

	speaker.Lock()
	err = r.streamer.Seek(pos)
	speaker.Unlock()
	if err != nil {
		return errors.Wrap(err, "seek failed")
	}
	r.completed.Store(false)
	return nil
}

// Unload stops and releases the resource.
func (e *Engine) Unload(h session.Handle) error {
	r, err := asResource(h)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.active.Store(false)

	// One resource at a time, so clearing the speaker only drops ours.
	speaker.Clear()
	if err := r.streamer.Close(); err != nil {
		return errors.Wrap(err, "failed to close streamer")
	}
	return nil
}

// Status reports the resource's current playback status.
func (e *Engine) Status(h session.Handle) (session.Status, error) {
	r, err := asResource(h)
	if err != nil {
		return session.Status{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return session.Status{}, nil
	}

	speaker.Lock()
	pos := r.streamer.Position()
	length := r.streamer.Len()
	paused := r.ctrl.Paused
	speaker.Unlock()

	rate := float64(r.format.SampleRate)
	return session.Status{
		Loaded:    true,
		Playing:   r.active.Load() && !paused,
		Position:  float64(pos) / rate,
		Duration:  float64(length) / rate,
		Completed: r.completed.Load(),
	}, nil
}

// ensureSpeaker initializes the audio output once.
func (e *Engine) ensureSpeaker() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}
	buf := e.sampleRate.N(time.Duration(e.bufferMs) * time.Millisecond)
	if err := speaker.Init(e.sampleRate, buf); err != nil {
		return errors.Wrap(err, "failed to initialize speaker")
	}
	e.initialized = true
	return nil
}

func asResource(h session.Handle) (*resource, error) {
	r, ok := h.(*resource)
	if !ok {
		return nil, errors.New("foreign engine handle")
	}
	return r, nil
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
