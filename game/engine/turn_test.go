package engine

import (
	"errors"
	"testing"
)

func TestNewTurnManager(t *testing.T) {
	if _, err := NewTurnManager([]Player{"A"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for a single player, got %v", err)
	}

	tm, err := NewTurnManager([]Player{"A", "B", "C"})
	if err != nil {
		t.Fatalf("Failed to create turn manager: %v", err)
	}
	if tm.Current() != "A" {
		t.Errorf("Expected A to start, got %s", tm.Current())
	}
}

func TestTurnManager_Cycle(t *testing.T) {
	tm, _ := NewTurnManager([]Player{"A", "B", "C"})

	expected := []Player{"B", "C", "A", "B", "C", "A"}
	for i, want := range expected {
		if got := tm.Advance(); got != want {
			t.Errorf("Advance %d: expected %s, got %s", i+1, want, got)
		}
	}

	tm.Reset()
	if tm.Current() != "A" {
		t.Errorf("Expected reset to return to A, got %s", tm.Current())
	}
}

func TestTurnManager_IsMoveAllowed(t *testing.T) {
	tm, _ := NewTurnManager([]Player{"A", "B"})

	tests := []struct {
		name     string
		cell     Cell
		player   Player
		expected bool
	}{
		{"neutral", Cell{Stock: 0, Owner: Neutral}, "A", true},
		{"own", Cell{Stock: 2, Owner: "A"}, "A", true},
		{"opponent", Cell{Stock: 1, Owner: "B"}, "A", false},
		{"opponent full", Cell{Stock: 3, Owner: "A"}, "B", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tm.IsMoveAllowed(tt.cell, tt.player); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestTurnManager_SetCurrent(t *testing.T) {
	tm, _ := NewTurnManager([]Player{"A", "B"})

	if err := tm.SetCurrent("B"); err != nil {
		t.Fatalf("Expected SetCurrent to succeed, got %v", err)
	}
	if tm.Current() != "B" {
		t.Errorf("Expected B, got %s", tm.Current())
	}
	if err := tm.SetCurrent("Z"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for unknown player, got %v", err)
	}
	if tm.Current() != "B" {
		t.Errorf("Expected failed SetCurrent to keep B, got %s", tm.Current())
	}
}

func TestTurnManager_PlayersIsCopy(t *testing.T) {
	tm, _ := NewTurnManager([]Player{"A", "B"})
	players := tm.Players()
	players[0] = "X"

	if tm.Current() != "A" {
		t.Errorf("Expected turn order to be unaffected, got %s", tm.Current())
	}
}
