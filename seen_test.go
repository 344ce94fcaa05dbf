package main

import (
	"testing"
	"time"

	"github.com/solraven/keeper/store"
)

func TestSeenMark(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	s := loadSeen(st)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if _, known := s.Mark("u1"); known {
		t.Error("u1 known before first visit")
	}
	now = now.Add(time.Hour)
	last, known := s.Mark("u1")
	if !known {
		t.Fatal("u1 unknown on second visit")
	}
	if got := now.Sub(last); got != time.Hour {
		t.Errorf("absence = %v, want 1h", got)
	}

	// A fresh load sees the persisted history.
	s2 := loadSeen(st)
	if _, known := s2.Mark("u1"); !known {
		t.Error("u1 unknown after reload")
	}
	if _, known := s2.Mark("u2"); known {
		t.Error("u2 known after reload")
	}
}
