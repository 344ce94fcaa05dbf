package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/solraven/keeper/store"
)

type doc struct {
	Words []string          `json:"words"`
	Users map[string]int    `json:"users"`
	Meta  map[string]string `json:"meta,omitzero"`
}

func TestLoadMissingWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	v := doc{Words: []string{}, Users: map[string]int{}}
	if err := s.Load("badwords", &v); err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "badwords.json")); err != nil {
		t.Errorf("defaults not written back: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	want := doc{
		Words: []string{"spam", "scam"},
		Users: map[string]int{"u1": 3},
	}
	if err := s.Save("ledger", &want); err != nil {
		t.Fatalf("save: %v", err)
	}
	var got doc
	if err := s.Load("ledger", &got); err != nil {
		t.Fatalf("load: %v", err)
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", d)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save("roles", &doc{Words: []string{"a"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("roles", &doc{Words: []string{"b"}}); err != nil {
		t.Fatal(err)
	}
	var got doc
	if err := s.Load("roles", &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Words) != 1 || got.Words[0] != "b" {
		t.Errorf("wrong words after overwrite: %v", got.Words)
	}
}
