package main

import (
	"log/slog"
	"sync"
	"time"

	"github.com/solraven/keeper/store"
)

const seenDoc = "userLastSeen"

// seenList remembers when each user was last in the room, persistently.
type seenList struct {
	mu  sync.Mutex
	st  *store.Store
	m   map[string]time.Time
	now func() time.Time
}

func loadSeen(st *store.Store) *seenList {
	m := make(map[string]time.Time)
	if err := st.Load(seenDoc, &m); err != nil {
		slog.Error("couldn't load last-seen list; starting empty", slog.Any("err", err))
		m = make(map[string]time.Time)
	}
	return &seenList{st: st, m: m, now: time.Now}
}

// Mark records that a user is here now and returns when they were last seen,
// if ever.
func (s *seenList) Mark(id string) (last time.Time, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, known = s.m[id]
	s.m[id] = s.now()
	if err := s.st.Save(seenDoc, &s.m); err != nil {
		slog.Error("couldn't persist last-seen list", slog.Any("err", err))
	}
	return last, known
}
