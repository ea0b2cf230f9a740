package core

import (
	"errors"
	"testing"
)

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()

	var called bool
	handler := func() error {
		called = true
		return nil
	}

	id := registry.Register("PING\n", "pong\n", handler)

	if id != 0 {
		t.Errorf("Expected first command to have ID 0, got %d", id)
	}

	cmd, ok := registry.Lookup([]byte("PING\n"))
	if !ok {
		t.Fatal("Failed to retrieve registered command")
	}

	if cmd.ID != id || cmd.Line != "PING\n" {
		t.Errorf("Lookup returned id %d line %q", cmd.ID, cmd.Line)
	}

	tr := NewMockTransport(nil)
	if err := cmd.Execute(tr); err != nil {
		t.Errorf("Execute failed: %v", err)
	}

	if !called {
		t.Error("Command handler was not called")
	}
	if tr.output() != "pong\n" {
		t.Errorf("Expected reply 'pong\\n', got %q", tr.output())
	}
}

func TestCommandRegistryMultiple(t *testing.T) {
	registry := NewCommandRegistry()

	id1 := registry.Register("A\n", "", nil)
	id2 := registry.Register("B\n", "", nil)
	id3 := registry.Register("C\n", "", nil)

	if id1 != 0 || id2 != 1 || id3 != 2 {
		t.Errorf("Command IDs not sequential: %d, %d, %d", id1, id2, id3)
	}

	// Duplicate registration keeps the first entry
	if dup := registry.Register("B\n", "other\n", nil); dup != id2 {
		t.Errorf("Duplicate registration returned %d, want %d", dup, id2)
	}
	cmd, ok := registry.Lookup([]byte("B\n"))
	if !ok || cmd.Reply != "" {
		t.Errorf("Duplicate registration replaced the first entry: %+v", cmd)
	}
	if next := registry.Register("D\n", "", nil); next != 3 {
		t.Errorf("Duplicate registration consumed an ID, next is %d", next)
	}
}

func TestCommandLookupExact(t *testing.T) {
	registry := NewCommandRegistry()
	registry.Register("BOOT3WB\n", "bootload_started\n", nil)

	tests := []struct {
		raw   string
		found bool
	}{
		{"BOOT3WB\n", true},
		{"BOOT3WB", false},
		{"BOOT3WB\n\n", false},
		{" BOOT3WB\n", false},
		{"", false},
	}

	for _, tt := range tests {
		if _, ok := registry.Lookup([]byte(tt.raw)); ok != tt.found {
			t.Errorf("Lookup(%q) found=%v, want %v", tt.raw, ok, tt.found)
		}
	}
}

func TestCommandHandlerRunsBeforeReply(t *testing.T) {
	tr := NewMockTransport(nil)
	var sentBeforeHandler int

	registry := NewCommandRegistry()
	registry.Register("X\n", "ok\n", func() error {
		sentBeforeHandler = len(tr.tx)
		return nil
	})
	cmd, _ := registry.Lookup([]byte("X\n"))

	if err := cmd.Execute(tr); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if sentBeforeHandler != 0 {
		t.Errorf("Reply bytes sent before handler ran: %d", sentBeforeHandler)
	}
}

func TestCommandHandlerErrorSuppressesReply(t *testing.T) {
	fault := errors.New("handler failed")
	tr := NewMockTransport(nil)

	registry := NewCommandRegistry()
	registry.Register("X\n", "ok\n", func() error { return fault })
	cmd, _ := registry.Lookup([]byte("X\n"))

	if err := cmd.Execute(tr); !errors.Is(err, fault) {
		t.Errorf("Expected handler error, got %v", err)
	}
	if tr.output() != "" {
		t.Errorf("No reply expected after handler error, got %q", tr.output())
	}
}
