package usecases

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/camino-tours/camino/internal/core/domain"
	"github.com/camino-tours/camino/internal/core/ports"
	"github.com/camino-tours/camino/internal/pkg/geospatial"
)

// WalkState is the top-level state of a walking-mode session.
type WalkState string

const (
	WalkIdle      WalkState = "idle"
	WalkPlaying   WalkState = "playing"
	WalkCountdown WalkState = "countdown"
	WalkDone      WalkState = "finished"
	WalkClosed    WalkState = "closed"
)

const (
	countdownFrom       = 3
	defaultTickInterval = time.Second
)

// WalkSnapshot is an immutable view of a session, emitted to the state
// handler after every transition and rendered by the client.
type WalkSnapshot struct {
	SessionID string           `json:"session_id"`
	TourID    string           `json:"tour_id"`
	State     WalkState        `json:"state"`
	StopIndex int              `json:"stop_index"`
	StopCount int              `json:"stop_count"`
	Stop      domain.Stop      `json:"stop"`
	HasMedia  bool             `json:"has_media"`
	Paused    bool             `json:"paused"`
	Countdown int              `json:"countdown,omitempty"`
	Distance  string           `json:"distance"`
	Position  *domain.GeoPoint `json:"position,omitempty"`
}

// WalkOption configures a WalkSession.
type WalkOption func(*WalkSession)

// WithMediaController sets the playback surface the session drives.
func WithMediaController(mc ports.MediaController) WalkOption {
	return func(s *WalkSession) { s.media = mc }
}

// WithStateHandler sets the callback invoked after every state change.
// The handler runs on the session's event path and must not call back into
// the session.
func WithStateHandler(fn func(WalkSnapshot)) WalkOption {
	return func(s *WalkSession) { s.onChange = fn }
}

// WithPositionCancel registers the position stream's cancellation function.
// Close calls it exactly once.
func WithPositionCancel(cancel func()) WalkOption {
	return func(s *WalkSession) { s.stopPosition = cancel }
}

// WithTickInterval overrides the countdown tick interval (tests).
func WithTickInterval(d time.Duration) WalkOption {
	return func(s *WalkSession) { s.tick = d }
}

// WalkSession drives a user through a tour's stops: it tracks the current
// stop, computes the live distance to it, sequences media playback, and
// auto-advances with a countdown after each stop's media finishes.
//
// All transitions are serialized; countdown timers are guarded by a
// generation counter so a tick scheduled before Close (or before a manual
// skip) can never mutate state afterwards. Exactly one media asset is active
// at a time: every path out of a stop goes through release().
type WalkSession struct {
	mu sync.Mutex

	id     string
	tourID string
	stops  []domain.Stop

	state     WalkState
	index     int
	paused    bool
	hasMedia  bool
	countdown int

	position *domain.GeoPoint
	posErr   string

	timer    *time.Timer
	timerGen uint64
	tick     time.Duration

	media        ports.MediaController
	onChange     func(WalkSnapshot)
	stopPosition func()

	closed bool
}

// NewWalkSession creates a session over a tour's stops. Stops are stably
// sorted by Order even if the supplier already sorted them.
func NewWalkSession(tourID string, stops []domain.Stop, opts ...WalkOption) (*WalkSession, error) {
	if len(stops) == 0 {
		return nil, fmt.Errorf("walking mode needs at least one stop")
	}

	ordered := make([]domain.Stop, len(stops))
	copy(ordered, stops)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	s := &WalkSession{
		id:     newSessionID(),
		tourID: tourID,
		stops:  ordered,
		state:  WalkIdle,
		tick:   defaultTickInterval,
		media:  nopMedia{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ID returns the session identifier.
func (s *WalkSession) ID() string { return s.id }

// Start enters the first stop and begins its media, if any.
func (s *WalkSession) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != WalkIdle {
		return
	}
	s.enterStop(0)
	s.emit()
}

// MediaEnded handles the current stop's media reaching its natural end.
// At the last stop the session finishes; otherwise a countdown to the next
// stop begins.
func (s *WalkSession) MediaEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != WalkPlaying || !s.hasMedia {
		return
	}
	if s.index == len(s.stops)-1 {
		s.release()
		s.state = WalkDone
		s.emit()
		return
	}
	s.state = WalkCountdown
	s.countdown = countdownFrom
	s.scheduleTick()
	s.emit()
}

// MediaFailed handles a load/playback failure: the stop is treated as
// media-less from here on. Manual navigation still works.
func (s *WalkSession) MediaFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != WalkPlaying || !s.hasMedia {
		return
	}
	s.hasMedia = false
	s.paused = false
	s.media.Stop()
	s.emit()
}

// SkipForward advances to the next stop. At the last stop it is a no-op.
func (s *WalkSession) SkipForward() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state == WalkDone || s.index >= len(s.stops)-1 {
		return
	}
	s.enterStop(s.index + 1)
	s.emit()
}

// SkipBack returns to the previous stop. At the first stop it is a no-op.
func (s *WalkSession) SkipBack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.index == 0 {
		return
	}
	s.enterStop(s.index - 1)
	s.emit()
}

// SkipCountdown cuts an active countdown short, advancing immediately.
func (s *WalkSession) SkipCountdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != WalkCountdown {
		return
	}
	s.enterStop(s.index + 1)
	s.emit()
}

// TogglePause pauses or resumes the active media in place. It does nothing
// on media-less or failed stops.
func (s *WalkSession) TogglePause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != WalkPlaying || !s.hasMedia {
		return
	}
	s.paused = !s.paused
	if s.paused {
		s.media.Pause()
	} else {
		s.media.Play()
	}
	s.emit()
}

// UpdatePosition records the user's latest fix. Position updates never
// interrupt a countdown; they only refresh the displayed distance.
func (s *WalkSession) UpdatePosition(lat, lon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.position = &domain.GeoPoint{Lat: lat, Lon: lon}
	s.posErr = ""
	s.emit()
}

// PositionUnavailable records why no fix is available (permission denied,
// no signal, timeout). The session keeps operating on manual controls.
func (s *WalkSession) PositionUnavailable(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if reason == "" {
		reason = "unavailable"
	}
	s.posErr = reason
	s.emit()
}

// Snapshot returns the current session state.
func (s *WalkSession) Snapshot() WalkSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Finished reports whether the session reached the end of the tour.
func (s *WalkSession) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == WalkDone
}

// Close tears the session down: pending timers are invalidated, active media
// stopped and released, and the position stream cancelled. Idempotent; no
// state handler fires after Close returns.
func (s *WalkSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.release()
	if s.stopPosition != nil {
		s.stopPosition()
		s.stopPosition = nil
	}
	s.state = WalkClosed
}

// enterStop is the single transition into a stop: it releases whatever was
// active, moves the index, and activates the new stop's media.
func (s *WalkSession) enterStop(i int) {
	s.release()
	s.index = i
	s.state = WalkPlaying
	s.paused = false
	s.countdown = 0

	media := s.stops[i].Media
	s.hasMedia = media.Present()
	if !s.hasMedia {
		return
	}
	if err := s.media.Load(media); err != nil {
		s.hasMedia = false
		return
	}
	s.media.Play()
}

// release is the single teardown point for per-stop resources: it
// invalidates any pending countdown tick and stops active media.
func (s *WalkSession) release() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.countdown = 0
	if s.hasMedia {
		s.media.Stop()
		s.hasMedia = false
	}
}

func (s *WalkSession) scheduleTick() {
	gen := s.timerGen
	s.timer = time.AfterFunc(s.tick, func() { s.onTick(gen) })
}

func (s *WalkSession) onTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.timerGen || s.state != WalkCountdown {
		return
	}
	s.countdown--
	if s.countdown <= 0 {
		s.enterStop(s.index + 1)
	} else {
		s.scheduleTick()
	}
	s.emit()
}

func (s *WalkSession) snapshot() WalkSnapshot {
	return WalkSnapshot{
		SessionID: s.id,
		TourID:    s.tourID,
		State:     s.state,
		StopIndex: s.index,
		StopCount: len(s.stops),
		Stop:      s.stops[s.index],
		HasMedia:  s.hasMedia,
		Paused:    s.paused,
		Countdown: s.countdown,
		Distance:  s.distanceLabel(),
		Position:  s.position,
	}
}

// distanceLabel renders the distance to the current stop. Before the first
// fix it reads "unavailable" rather than a misleading zero; after a position
// error it surfaces the recorded reason.
func (s *WalkSession) distanceLabel() string {
	if s.posErr != "" {
		return s.posErr
	}
	if s.position == nil {
		return "unavailable"
	}
	stop := s.stops[s.index]
	meters := geospatial.Haversine(s.position.Lat, s.position.Lon, stop.Location.Lat, stop.Location.Lon)
	return geospatial.FormatDistance(meters)
}

func (s *WalkSession) emit() {
	if s.onChange != nil {
		s.onChange(s.snapshot())
	}
}

// nopMedia is the default playback surface when none is attached.
type nopMedia struct{}

func (nopMedia) Load(domain.MediaRef) error { return nil }
func (nopMedia) Play()                      {}
func (nopMedia) Pause()                     {}
func (nopMedia) Stop()                      {}

func newSessionID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("walk-%d", time.Now().UnixNano())
	}
	return "walk-" + hex.EncodeToString(b)
}
