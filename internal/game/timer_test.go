package game

import (
	"testing"
	"time"
)

func TestTimerHandleSleepCompletes(t *testing.T) {
	h := NewTimerHandle()
	if !h.Sleep(time.Millisecond) {
		t.Fatal("undisturbed sleep reported cancellation")
	}
	if h.Cancelled() {
		t.Fatal("handle cancelled without Cancel")
	}
}

func TestTimerHandleCancelInterruptsSleep(t *testing.T) {
	h := NewTimerHandle()
	done := make(chan bool, 1)
	go func() {
		done <- h.Sleep(time.Minute)
	}()
	h.Cancel()
	select {
	case slept := <-done:
		if slept {
			t.Fatal("cancelled sleep reported completion")
		}
	case <-time.After(time.Second):
		t.Fatal("cancel did not interrupt the sleep")
	}
	if !h.Cancelled() {
		t.Fatal("handle not marked cancelled")
	}
}

func TestTimerHandleCancelIsIdempotent(t *testing.T) {
	h := NewTimerHandle()
	h.Cancel()
	h.Cancel() // must not panic
	if !h.Cancelled() {
		t.Fatal("handle not cancelled")
	}
}
