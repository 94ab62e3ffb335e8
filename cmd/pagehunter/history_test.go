package main

import (
	"errors"
	"testing"

	"github.com/nao1215/pagehunter/internal/database"
	"github.com/nao1215/pagehunter/internal/model"
)

// TestCompareRuns tests rank movement between two runs.
func TestCompareRuns(t *testing.T) {
	t.Parallel()

	previous := &model.Run{ID: "prev", Rankings: []model.RankedPage{
		{URL: "a", Score: 0.5},
		{URL: "b", Score: 0.3},
		{URL: "gone", Score: 0.2},
	}}
	current := &model.Run{ID: "cur", Rankings: []model.RankedPage{
		{URL: "b", Score: 0.4},
		{URL: "a", Score: 0.35},
		{URL: "fresh", Score: 0.25},
	}}

	t.Run("with previous run", func(t *testing.T) {
		t.Parallel()

		result := compareRuns(previous, current)
		if result.PreviousID != "prev" {
			t.Errorf("expected previous id, got %q", result.PreviousID)
		}

		want := []struct {
			url    string
			change int
			prev   int
		}{
			{url: "b", change: 1, prev: 2},
			{url: "a", change: -1, prev: 1},
			{url: "fresh", change: 0, prev: 0},
		}
		if len(result.Movements) != len(want) {
			t.Fatalf("expected %d movements, got %d", len(want), len(result.Movements))
		}
		for i, w := range want {
			m := result.Movements[i]
			if m.URL != w.url || m.Change() != w.change || m.PreviousPosition != w.prev || m.Position != i+1 {
				t.Errorf("movement %d = %+v (change %d), want %+v", i, m, m.Change(), w)
			}
		}
		if result.Movements[0].PreviousScore != 0.3 {
			t.Errorf("expected previous score 0.3, got %v", result.Movements[0].PreviousScore)
		}

		if len(result.Dropped) != 1 || result.Dropped[0] != "gone" {
			t.Errorf("expected [gone] dropped, got %v", result.Dropped)
		}
	})

	t.Run("without previous run", func(t *testing.T) {
		t.Parallel()

		result := compareRuns(nil, current)
		if result.PreviousID != "" || len(result.Dropped) != 0 {
			t.Errorf("unexpected comparison: %+v", result)
		}
		for _, m := range result.Movements {
			if m.PreviousPosition != 0 {
				t.Errorf("expected no previous position for %s", m.URL)
			}
		}
	})
}

// TestFormatMovement tests the movement column.
func TestFormatMovement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		m        rankMovement
		compared bool
		want     string
	}{
		{name: "no comparison", m: rankMovement{Position: 1, PreviousPosition: 3}, compared: false, want: ""},
		{name: "new page", m: rankMovement{Position: 2}, compared: true, want: "new"},
		{name: "climbed", m: rankMovement{Position: 1, PreviousPosition: 3}, compared: true, want: "+2"},
		{name: "fell", m: rankMovement{Position: 4, PreviousPosition: 3}, compared: true, want: "-1"},
		{name: "unchanged", m: rankMovement{Position: 2, PreviousPosition: 2}, compared: true, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatMovement(tt.m, tt.compared); got != tt.want {
				t.Errorf("formatMovement() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestHistoryErrors tests history on an empty database.
func TestHistoryErrors(t *testing.T) {
	t.Parallel()

	flags := isolatedFlags(t, "")

	t.Run("missing database", func(t *testing.T) {
		_, _, err := executeCommand(t, append([]string{"history"}, flags...)...)
		if !errors.Is(err, database.ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	db, err := database.Open(flags[5], database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	t.Run("no runs", func(t *testing.T) {
		stdout, _, err := executeCommand(t, append([]string{"history"}, flags...)...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout == "" {
			t.Error("expected a message")
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		_, _, err := executeCommand(t, append([]string{"history", "no-such-run"}, flags...)...)
		if !errors.Is(err, database.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("latest without runs", func(t *testing.T) {
		_, _, err := executeCommand(t, append([]string{"history", "latest"}, flags...)...)
		if !errors.Is(err, database.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("rank without pages", func(t *testing.T) {
		_, _, err := executeCommand(t, append([]string{"rank"}, flags...)...)
		if !errors.Is(err, errNoStoredPages) {
			t.Errorf("expected errNoStoredPages, got %v", err)
		}
	})
}
