package usecases_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/camino-tours/camino/internal/core/domain"
	"github.com/camino-tours/camino/internal/core/usecases"
)

// --- Scripted media controller ---

type scriptMedia struct {
	mu      sync.Mutex
	loadErr error
	ops     []string
}

func (m *scriptMedia) Load(media domain.MediaRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, "load:"+media.URL)
	return m.loadErr
}

func (m *scriptMedia) Play()  { m.record("play") }
func (m *scriptMedia) Pause() { m.record("pause") }
func (m *scriptMedia) Stop()  { m.record("stop") }

func (m *scriptMedia) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
}

func (m *scriptMedia) history() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.ops))
	copy(out, m.ops)
	return out
}

// --- Snapshot recorder ---

type snapRecorder struct {
	mu    sync.Mutex
	snaps []usecases.WalkSnapshot
	ch    chan usecases.WalkSnapshot
}

func newRecorder() *snapRecorder {
	return &snapRecorder{ch: make(chan usecases.WalkSnapshot, 64)}
}

func (r *snapRecorder) handle(s usecases.WalkSnapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
	select {
	case r.ch <- s:
	default:
	}
}

func (r *snapRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *snapRecorder) all() []usecases.WalkSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]usecases.WalkSnapshot, len(r.snaps))
	copy(out, r.snaps)
	return out
}

// waitFor blocks until a snapshot satisfying pred arrives or the timeout hits.
func waitFor(t *testing.T, r *snapRecorder, pred func(usecases.WalkSnapshot) bool) usecases.WalkSnapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-r.ch:
			if pred(s) {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot; saw %d snapshots", r.count())
			return usecases.WalkSnapshot{}
		}
	}
}

func audioStops(n int) []domain.Stop {
	stops := make([]domain.Stop, n)
	for i := range stops {
		stops[i] = domain.Stop{
			ID:       string(rune('a' + i)),
			Title:    "Stop " + string(rune('A'+i)),
			Order:    i + 1,
			Location: domain.GeoPoint{Lat: 43.263 + float64(i)*0.001, Lon: -2.935},
			Media:    domain.MediaRef{Kind: domain.MediaAudio, URL: "audio-" + string(rune('a'+i)) + ".mp3"},
		}
	}
	return stops
}

const testTick = 5 * time.Millisecond

// --- Tests ---

func TestWalkSession_EmptyStops(t *testing.T) {
	_, err := usecases.NewWalkSession("tour-1", nil)
	if err == nil {
		t.Fatal("expected error for empty stop list")
	}
}

func TestWalkSession_StartEntersFirstStop(t *testing.T) {
	media := &scriptMedia{}
	rec := newRecorder()
	s, err := usecases.NewWalkSession("tour-1", audioStops(2),
		usecases.WithMediaController(media),
		usecases.WithStateHandler(rec.handle),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	s.Start()

	snap := s.Snapshot()
	if snap.State != usecases.WalkPlaying || snap.StopIndex != 0 {
		t.Errorf("expected playing stop 0, got %s/%d", snap.State, snap.StopIndex)
	}
	got := media.history()
	if len(got) != 2 || got[0] != "load:audio-a.mp3" || got[1] != "play" {
		t.Errorf("unexpected media ops: %v", got)
	}
}

func TestWalkSession_SortsStopsByOrder(t *testing.T) {
	stops := audioStops(3)
	shuffled := []domain.Stop{stops[2], stops[0], stops[1]}

	s, err := usecases.NewWalkSession("tour-1", shuffled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	s.Start()
	if got := s.Snapshot().Stop.Title; got != "Stop A" {
		t.Errorf("expected first stop by order, got %s", got)
	}
}

func TestWalkSession_CountdownAdvancesExactlyOnce(t *testing.T) {
	media := &scriptMedia{}
	rec := newRecorder()
	s, _ := usecases.NewWalkSession("tour-1", audioStops(2),
		usecases.WithMediaController(media),
		usecases.WithStateHandler(rec.handle),
		usecases.WithTickInterval(testTick),
	)
	defer s.Close()

	s.Start()
	s.MediaEnded()

	waitFor(t, rec, func(snap usecases.WalkSnapshot) bool {
		return snap.State == usecases.WalkPlaying && snap.StopIndex == 1
	})

	// The countdown must have passed through 3, 2, 1 in order.
	var seen []int
	for _, snap := range rec.all() {
		if snap.State == usecases.WalkCountdown {
			seen = append(seen, snap.Countdown)
		}
	}
	if len(seen) != 3 || seen[0] != 3 || seen[1] != 2 || seen[2] != 1 {
		t.Errorf("expected countdown 3,2,1, got %v", seen)
	}

	// No second advance: index stays at 1.
	time.Sleep(10 * testTick)
	if snap := s.Snapshot(); snap.StopIndex != 1 || snap.State != usecases.WalkPlaying {
		t.Errorf("expected to stay at stop 1, got %s/%d", snap.State, snap.StopIndex)
	}
}

func TestWalkSession_FinishAtLastStop(t *testing.T) {
	rec := newRecorder()
	s, _ := usecases.NewWalkSession("tour-1", audioStops(1),
		usecases.WithStateHandler(rec.handle),
		usecases.WithTickInterval(testTick),
	)
	defer s.Close()

	s.Start()
	s.MediaEnded()

	snap := s.Snapshot()
	if snap.State != usecases.WalkDone {
		t.Fatalf("expected finished, got %s", snap.State)
	}
	for _, rs := range rec.all() {
		if rs.State == usecases.WalkCountdown {
			t.Error("no countdown may be emitted at the final stop")
		}
	}
}

func TestWalkSession_SkipBounds(t *testing.T) {
	s, _ := usecases.NewWalkSession("tour-1", audioStops(3))
	defer s.Close()
	s.Start()

	for i := 0; i < 10; i++ {
		s.SkipForward()
	}
	if idx := s.Snapshot().StopIndex; idx != 2 {
		t.Errorf("expected index clamped to 2, got %d", idx)
	}

	for i := 0; i < 10; i++ {
		s.SkipBack()
	}
	if idx := s.Snapshot().StopIndex; idx != 0 {
		t.Errorf("expected index clamped to 0, got %d", idx)
	}
}

func TestWalkSession_SkipCancelsCountdown(t *testing.T) {
	media := &scriptMedia{}
	s, _ := usecases.NewWalkSession("tour-1", audioStops(3),
		usecases.WithMediaController(media),
		usecases.WithTickInterval(testTick),
	)
	defer s.Close()

	s.Start()
	s.MediaEnded() // countdown toward stop 1
	s.SkipForward()

	if snap := s.Snapshot(); snap.State != usecases.WalkPlaying || snap.StopIndex != 1 {
		t.Fatalf("expected playing stop 1 after skip, got %s/%d", snap.State, snap.StopIndex)
	}

	// The cancelled countdown's pending tick must not advance a second time.
	time.Sleep(10 * testTick)
	if idx := s.Snapshot().StopIndex; idx != 1 {
		t.Errorf("stale countdown tick advanced the session to %d", idx)
	}
}

func TestWalkSession_SkipNowDuringCountdown(t *testing.T) {
	s, _ := usecases.NewWalkSession("tour-1", audioStops(2),
		usecases.WithTickInterval(time.Hour), // countdown would never finish on its own
	)
	defer s.Close()

	s.Start()
	s.MediaEnded()
	s.SkipCountdown()

	if snap := s.Snapshot(); snap.State != usecases.WalkPlaying || snap.StopIndex != 1 {
		t.Errorf("expected immediate advance, got %s/%d", snap.State, snap.StopIndex)
	}
}

func TestWalkSession_TogglePause(t *testing.T) {
	media := &scriptMedia{}
	s, _ := usecases.NewWalkSession("tour-1", audioStops(1),
		usecases.WithMediaController(media),
	)
	defer s.Close()
	s.Start()

	s.TogglePause()
	if !s.Snapshot().Paused {
		t.Error("expected paused after first toggle")
	}
	s.TogglePause()
	if s.Snapshot().Paused {
		t.Error("expected resumed after second toggle")
	}

	ops := media.history()
	if ops[len(ops)-2] != "pause" || ops[len(ops)-1] != "play" {
		t.Errorf("expected pause then play, got %v", ops)
	}
}

func TestWalkSession_MedialessStop(t *testing.T) {
	media := &scriptMedia{}
	stops := []domain.Stop{{ID: "a", Title: "Plaza", Order: 1}}
	s, _ := usecases.NewWalkSession("tour-1", stops,
		usecases.WithMediaController(media),
	)
	defer s.Close()
	s.Start()

	snap := s.Snapshot()
	if snap.HasMedia {
		t.Error("expected no media on a media-less stop")
	}
	if len(media.history()) != 0 {
		t.Errorf("no media ops expected, got %v", media.history())
	}

	// A natural-end event can never fire here; a stray one is ignored.
	s.MediaEnded()
	if got := s.Snapshot().State; got != usecases.WalkPlaying {
		t.Errorf("media-less stop must not auto-advance, got %s", got)
	}

	// Pause control is disabled without media.
	s.TogglePause()
	if s.Snapshot().Paused {
		t.Error("toggle pause must be a no-op without media")
	}
}

func TestWalkSession_MediaLoadFailure(t *testing.T) {
	media := &scriptMedia{loadErr: errFailed}
	s, _ := usecases.NewWalkSession("tour-1", audioStops(2),
		usecases.WithMediaController(media),
	)
	defer s.Close()
	s.Start()

	snap := s.Snapshot()
	if snap.HasMedia {
		t.Error("failed load must degrade the stop to media-less")
	}

	// Manual navigation still works.
	s.SkipForward()
	if idx := s.Snapshot().StopIndex; idx != 1 {
		t.Errorf("expected skip to stop 1, got %d", idx)
	}
}

func TestWalkSession_MediaFailedMidPlayback(t *testing.T) {
	media := &scriptMedia{}
	s, _ := usecases.NewWalkSession("tour-1", audioStops(1),
		usecases.WithMediaController(media),
	)
	defer s.Close()
	s.Start()

	s.MediaFailed()
	if s.Snapshot().HasMedia {
		t.Error("expected media-less after playback failure")
	}
	ops := media.history()
	if ops[len(ops)-1] != "stop" {
		t.Errorf("failed media must be released, got %v", ops)
	}
}

func TestWalkSession_DistanceDisplay(t *testing.T) {
	s, _ := usecases.NewWalkSession("tour-1", audioStops(1))
	defer s.Close()
	s.Start()

	if got := s.Snapshot().Distance; got != "unavailable" {
		t.Errorf("expected unavailable before first fix, got %q", got)
	}

	s.UpdatePosition(43.262, -2.935)
	got := s.Snapshot().Distance
	if !strings.HasSuffix(got, " m") {
		t.Errorf("expected a meters distance, got %q", got)
	}
	if got == "0 m" {
		t.Errorf("distance must not read zero for a non-zero separation")
	}

	s.PositionUnavailable("location permission denied")
	if got := s.Snapshot().Distance; got != "location permission denied" {
		t.Errorf("expected the unavailability reason, got %q", got)
	}

	// A fresh fix clears the error.
	s.UpdatePosition(43.263, -2.935)
	if got := s.Snapshot().Distance; got == "location permission denied" {
		t.Error("a new fix must clear the unavailability reason")
	}
}

func TestWalkSession_PositionUpdateDoesNotInterruptCountdown(t *testing.T) {
	s, _ := usecases.NewWalkSession("tour-1", audioStops(2),
		usecases.WithTickInterval(time.Hour),
	)
	defer s.Close()
	s.Start()
	s.MediaEnded()

	s.UpdatePosition(43.264, -2.936)

	snap := s.Snapshot()
	if snap.State != usecases.WalkCountdown || snap.Countdown != 3 {
		t.Errorf("position update must not touch the countdown, got %s/%d", snap.State, snap.Countdown)
	}
}

func TestWalkSession_CloseIdempotent(t *testing.T) {
	media := &scriptMedia{}
	rec := newRecorder()
	cancels := 0
	s, _ := usecases.NewWalkSession("tour-1", audioStops(2),
		usecases.WithMediaController(media),
		usecases.WithStateHandler(rec.handle),
		usecases.WithTickInterval(testTick),
		usecases.WithPositionCancel(func() { cancels++ }),
	)

	s.Start()
	s.MediaEnded() // countdown pending at close time

	s.Close()
	s.Close()

	if cancels != 1 {
		t.Errorf("position cancel must run exactly once, ran %d times", cancels)
	}

	seen := rec.count()
	time.Sleep(10 * testTick)
	if rec.count() != seen {
		t.Error("state handler fired after close")
	}

	// Events after close are ignored.
	s.SkipForward()
	s.UpdatePosition(43.0, -2.0)
	if rec.count() != seen {
		t.Error("closed session emitted state updates")
	}

	ops := media.history()
	if ops[len(ops)-1] != "stop" {
		t.Errorf("close must release active media, got %v", ops)
	}
}

func TestWalkSession_EndToEnd(t *testing.T) {
	media := &scriptMedia{}
	rec := newRecorder()
	s, _ := usecases.NewWalkSession("tour-1", audioStops(3),
		usecases.WithMediaController(media),
		usecases.WithStateHandler(rec.handle),
		usecases.WithTickInterval(testTick),
	)
	defer s.Close()

	s.Start()
	if snap := s.Snapshot(); snap.StopIndex != 0 || snap.State != usecases.WalkPlaying {
		t.Fatalf("expected playing stop 0, got %s/%d", snap.State, snap.StopIndex)
	}

	// Stop 0's audio ends: countdown 3,2,1 then stop 1.
	s.MediaEnded()
	waitFor(t, rec, func(snap usecases.WalkSnapshot) bool {
		return snap.State == usecases.WalkPlaying && snap.StopIndex == 1
	})

	// Manual skip to stop 2.
	s.SkipForward()
	if snap := s.Snapshot(); snap.StopIndex != 2 {
		t.Fatalf("expected stop 2 after skip, got %d", snap.StopIndex)
	}

	// Final stop's audio ends: finished, no countdown.
	countdowns := 0
	for _, rs := range rec.all() {
		if rs.State == usecases.WalkCountdown {
			countdowns++
		}
	}
	s.MediaEnded()
	if snap := s.Snapshot(); snap.State != usecases.WalkDone {
		t.Fatalf("expected finished, got %s", snap.State)
	}
	for _, rs := range rec.all() {
		if rs.State == usecases.WalkCountdown {
			countdowns--
		}
	}
	if countdowns != 0 {
		t.Error("finishing the last stop emitted a countdown")
	}
}

var errFailed = errFailedType{}

type errFailedType struct{}

func (errFailedType) Error() string { return "media failed to load" }
