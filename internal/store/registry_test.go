package store

import (
	"testing"
	"time"

	"tictactoe-online/internal/game"
)

func newTestRegistry() *Registry {
	return NewRegistry(time.Hour, 5*time.Minute)
}

func TestRegistryCreateAndGet(t *testing.T) {
	reg := newTestRegistry()
	r := game.NewRoom("ABC234")
	if err := reg.Create(r); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, ok := reg.TryGet("ABC234")
	if !ok || got != r {
		t.Fatal("TryGet did not return the created room")
	}
	// Second read is served from the cache and must be the same room.
	got, ok = reg.TryGet("ABC234")
	if !ok || got != r {
		t.Fatal("cached TryGet did not return the created room")
	}
	if !reg.Exists("ABC234") {
		t.Fatal("Exists returned false for a live room")
	}
	if reg.Count() != 1 {
		t.Fatalf("Count = %d, want 1", reg.Count())
	}
}

func TestRegistryCreateRejectsCollision(t *testing.T) {
	reg := newTestRegistry()
	if err := reg.Create(game.NewRoom("ABC234")); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if err := reg.Create(game.NewRoom("ABC234")); err != ErrCodeTaken {
		t.Fatalf("got %v, want ErrCodeTaken", err)
	}
}

func TestRegistryDeleteInvalidatesCache(t *testing.T) {
	reg := newTestRegistry()
	reg.Create(game.NewRoom("ABC234"))
	reg.TryGet("ABC234") // warm the cache

	if !reg.Delete("ABC234") {
		t.Fatal("Delete returned false for a live room")
	}
	if _, ok := reg.TryGet("ABC234"); ok {
		t.Fatal("deleted room still served from cache")
	}
	if reg.Delete("ABC234") {
		t.Fatal("second Delete returned true")
	}
}

func TestRegistryAllSeesMutations(t *testing.T) {
	reg := newTestRegistry()
	reg.Create(game.NewRoom("AAA234"))

	if got := len(reg.All()); got != 1 {
		t.Fatalf("All returned %d rooms, want 1", got)
	}

	// Creating after a cached All must invalidate the list cache.
	reg.Create(game.NewRoom("BBB234"))
	if got := len(reg.All()); got != 2 {
		t.Fatalf("All returned %d rooms after create, want 2", got)
	}

	reg.Delete("AAA234")
	if got := len(reg.All()); got != 1 {
		t.Fatalf("All returned %d rooms after delete, want 1", got)
	}
}

func TestRegistryClear(t *testing.T) {
	reg := newTestRegistry()
	reg.Create(game.NewRoom("AAA234"))
	reg.Create(game.NewRoom("BBB234"))
	reg.Clear()
	if reg.Count() != 0 {
		t.Fatalf("Count = %d after Clear, want 0", reg.Count())
	}
	if _, ok := reg.TryGet("AAA234"); ok {
		t.Fatal("cleared room still served")
	}
}
