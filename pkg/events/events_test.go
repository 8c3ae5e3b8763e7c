package events

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	eb := NewEventBus()
	defer eb.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)

	var got Event
	eb.Subscribe(ConsoleLog, func(e Event) {
		got = e
		wg.Done()
	})

	eb.Publish(Event{
		Type: ConsoleLog,
		Data: map[string]interface{}{"message": "hello"},
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}

	if got.Type != ConsoleLog {
		t.Errorf("event type = %q, want %q", got.Type, ConsoleLog)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp not set on publish")
	}
	if got.ID == "" {
		t.Error("event ID not set on publish")
	}
	if got.Data["message"] != "hello" {
		t.Errorf("data = %v, want message=hello", got.Data)
	}
}

func TestPublishOnlyMatchingType(t *testing.T) {
	eb := NewEventBus()
	defer eb.Shutdown()

	var consoleCount, networkCount atomic.Int32

	eb.Subscribe(ConsoleLog, func(e Event) { consoleCount.Add(1) })
	eb.Subscribe(NetworkError, func(e Event) { networkCount.Add(1) })

	for i := 0; i < 5; i++ {
		eb.Publish(Event{Type: ConsoleLog})
	}

	deadline := time.Now().Add(2 * time.Second)
	for consoleCount.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if consoleCount.Load() != 5 {
		t.Errorf("console handler ran %d times, want 5", consoleCount.Load())
	}
	if networkCount.Load() != 0 {
		t.Errorf("network handler ran %d times, want 0", networkCount.Load())
	}
}

func TestHandlerPanicDoesNotKillBus(t *testing.T) {
	eb := NewEventBus()
	defer eb.Shutdown()

	var ran atomic.Bool

	eb.Subscribe(ToolFailed, func(e Event) {
		panic("handler blew up")
	})
	eb.Subscribe(ToolExecuted, func(e Event) {
		ran.Store(true)
	})

	eb.Publish(Event{Type: ToolFailed})
	eb.Publish(Event{Type: ToolExecuted})

	deadline := time.Now().Add(2 * time.Second)
	for !ran.Load() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if !ran.Load() {
		t.Fatal("bus stopped delivering after a handler panic")
	}
}
