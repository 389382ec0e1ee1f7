package notifier

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockNotifier struct {
	name       string
	sent       []Event
	shouldFail bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Init(cfg Config) error { return nil }

func (m *mockNotifier) Send(ctx context.Context, event Event) error {
	m.sent = append(m.sent, event)
	if m.shouldFail {
		return errors.New("send failed")
	}
	return nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockNotifier{name: "test"}
	err := r.Register(mock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Duplicate registration should fail
	err = r.Register(mock)
	if err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "webhook"})
	r.Register(&mockNotifier{name: "audit"})

	names := r.Names()
	if len(names) != 2 || names[0] != "audit" || names[1] != "webhook" {
		t.Errorf("expected [audit webhook], got %v", names)
	}
}

func TestRegistry_NotifyAll(t *testing.T) {
	r := NewRegistry()

	ok := &mockNotifier{name: "ok"}
	failing := &mockNotifier{name: "failing", shouldFail: true}
	r.Register(ok)
	r.Register(failing)

	event := Event{Type: EventBacktestCompleted, Time: time.Now(), Data: map[string]any{"symbol": "AAPL"}}
	errs := r.NotifyAll(context.Background(), event)

	if len(ok.sent) != 1 || len(failing.sent) != 1 {
		t.Errorf("expected one send per notifier, got %d and %d", len(ok.sent), len(failing.sent))
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if errs["failing"] == nil {
		t.Error("expected error from failing notifier")
	}
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	if errs := r.NotifyAll(context.Background(), Event{Type: EventBacktestCompleted}); errs != nil {
		t.Errorf("expected nil, got %v", errs)
	}
}
