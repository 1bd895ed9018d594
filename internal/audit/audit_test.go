package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestNewEventStampsULID(t *testing.T) {
	a := NewEvent(TypeLoginSuccess)
	b := NewEvent(TypeLoginSuccess)

	if _, err := ulid.ParseStrict(a.ID); err != nil {
		t.Fatalf("event id is not a ulid: %v", err)
	}
	if a.ID == b.ID {
		t.Fatal("expected distinct event ids")
	}
	if a.Type != TypeLoginSuccess || a.Timestamp.IsZero() {
		t.Fatalf("unexpected event %#v", a)
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	e := NewEvent(TypeLogout)
	e.UserID = "u-1"
	sink.Emit(context.Background(), e)
	sink.Emit(context.Background(), NewEvent(TypeLoginFailure))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var got Event
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.UserID != "u-1" || got.Type != TypeLogout {
		t.Fatalf("unexpected decoded event %#v", got)
	}
}

func TestDispatcherDeliversAndFlushesOnClose(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), NewEvent(TypeLoginSuccess))
	}
	d.Close()

	if got := sink.count(); got != 10 {
		t.Fatalf("expected 10 delivered events, got %d", got)
	}

	// Emitting after close is a no-op.
	d.Emit(context.Background(), NewEvent(TypeLoginSuccess))
	if got := sink.count(); got != 10 {
		t.Fatalf("event delivered after close, got %d", got)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	sink := &blockingSink{release: release, started: make(chan struct{}, 1)}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	d.Emit(context.Background(), NewEvent(TypeLoginFailure))
	select {
	case <-sink.started:
	case <-time.After(time.Second):
		t.Fatal("sink never received the first event")
	}

	// One fits in the buffer, the rest are dropped.
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), NewEvent(TypeLoginFailure))
	}
	close(release)
	d.Close()

	if d.Dropped() != 4 {
		t.Fatalf("expected 4 dropped events, got %d", d.Dropped())
	}
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), NewEvent(TypeLogout))
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(_ context.Context, e Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type blockingSink struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (s *blockingSink) Emit(context.Context, Event) {
	s.once.Do(func() { s.started <- struct{}{} })
	<-s.release
}
