// Package ledger implements Keeper's moderation ledger: time-boxed command
// bans, message mutes, and the bad-word set.
//
// Expiry is lazy. There is no background sweep; IsBanned and IsMuted drop
// stale records at check time and rewrite the store as a side effect of the
// read. Callers must expect reads to persist deletions.
package ledger

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/solraven/keeper/store"
)

const (
	bansDoc  = "bannedCommands"
	mutesDoc = "mutedMessages"
	wordsDoc = "badWords"
)

// Record is one ban or mute entry.
type Record struct {
	Active   bool      `json:"active"`
	IssuedAt time.Time `json:"issued_at,omitzero"`
	// DurationMinutes is nil for a permanent ban. Mutes always carry a
	// duration.
	DurationMinutes *int `json:"duration_minutes"`
}

// expired reports whether the record should be treated as absent at now.
// A record lapses the instant its duration elapses, not one tick after.
func (r Record) expired(now time.Time) bool {
	if !r.Active {
		return true
	}
	if r.DurationMinutes == nil {
		return false
	}
	return now.Sub(r.IssuedAt) >= time.Duration(*r.DurationMinutes)*time.Minute
}

type userDoc struct {
	Users map[string]Record `json:"users"`
}

type wordsFile struct {
	Words []string `json:"words"`
}

// folder folds case for bad-word comparison.
var folder = cases.Fold()

// Ledger holds the moderation state. Mutations persist synchronously;
// persistence failures are logged and swallowed.
type Ledger struct {
	mu    sync.Mutex
	st    *store.Store
	bans  map[string]Record
	mutes map[string]Record
	words []string

	now func() time.Time
}

// Load reads the ledger documents, degrading to empty state on read errors.
func Load(st *store.Store) *Ledger {
	l := &Ledger{st: st, now: time.Now}
	var bans, mutes userDoc
	var words wordsFile
	if err := st.Load(bansDoc, &bans); err != nil {
		slog.Error("couldn't load bans; starting empty", slog.Any("err", err))
	}
	if err := st.Load(mutesDoc, &mutes); err != nil {
		slog.Error("couldn't load mutes; starting empty", slog.Any("err", err))
	}
	if err := st.Load(wordsDoc, &words); err != nil {
		slog.Error("couldn't load bad words; starting empty", slog.Any("err", err))
	}
	l.bans = bans.Users
	if l.bans == nil {
		l.bans = make(map[string]Record)
	}
	l.mutes = mutes.Users
	if l.mutes == nil {
		l.mutes = make(map[string]Record)
	}
	for _, w := range words.Words {
		l.words = append(l.words, folder.String(w))
	}
	return l
}

// IsBanned reports whether a user is banned from commands. A stale record is
// deleted and the store rewritten before answering.
func (l *Ledger) IsBanned(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check(l.bans, bansDoc, id)
}

// IsMuted reports whether a user's messages are muted, with the same lazy
// expiry as IsBanned.
func (l *Ledger) IsMuted(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check(l.mutes, mutesDoc, id)
}

func (l *Ledger) check(m map[string]Record, doc, id string) bool {
	r, ok := m[id]
	if !ok {
		return false
	}
	if r.expired(l.now()) {
		delete(m, id)
		l.persist(doc, m)
		return false
	}
	return true
}

// Ban bans a user from commands for the given number of minutes.
// minutes == 0 means permanent.
func (l *Ledger) Ban(id string, minutes int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := Record{Active: true, IssuedAt: l.now()}
	if minutes > 0 {
		r.DurationMinutes = &minutes
	}
	l.bans[id] = r
	l.persist(bansDoc, l.bans)
}

// Unban lifts a user's command ban, reporting whether one existed.
func (l *Ledger) Unban(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.bans[id]; !ok {
		return false
	}
	delete(l.bans, id)
	l.persist(bansDoc, l.bans)
	return true
}

// Mute mutes a user's messages for the given number of minutes. There are no
// permanent mutes; minutes must be positive.
func (l *Ledger) Mute(id string, minutes int) {
	if minutes <= 0 {
		minutes = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mutes[id] = Record{Active: true, IssuedAt: l.now(), DurationMinutes: &minutes}
	l.persist(mutesDoc, l.mutes)
}

// Unmute lifts a user's mute, reporting whether one existed.
func (l *Ledger) Unmute(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.mutes[id]; !ok {
		return false
	}
	delete(l.mutes, id)
	l.persist(mutesDoc, l.mutes)
	return true
}

// AddWord adds a bad word, reporting false if it was already present.
// Comparison is case-insensitive.
func (l *Ledger) AddWord(w string) bool {
	w = folder.String(w)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, have := range l.words {
		if have == w {
			return false
		}
	}
	l.words = append(l.words, w)
	l.persistWords()
	return true
}

// RemoveWord removes a bad word, reporting false if it was absent.
func (l *Ledger) RemoveWord(w string) bool {
	w = folder.String(w)
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, have := range l.words {
		if have == w {
			l.words = append(l.words[:i], l.words[i+1:]...)
			l.persistWords()
			return true
		}
	}
	return false
}

// Contains reports whether text contains any bad word, case-insensitively.
// The scan short-circuits on the first hit.
func (l *Ledger) Contains(text string) bool {
	t := folder.String(text)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.words {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}

// Words returns the bad-word set, folded.
func (l *Ledger) Words() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ws := make([]string, len(l.words))
	copy(ws, l.words)
	return ws
}

func (l *Ledger) persist(doc string, m map[string]Record) {
	if err := l.st.Save(doc, &userDoc{Users: m}); err != nil {
		slog.Error("couldn't persist ledger", slog.String("doc", doc), slog.Any("err", err))
	}
}

func (l *Ledger) persistWords() {
	if err := l.st.Save(wordsDoc, &wordsFile{Words: l.words}); err != nil {
		slog.Error("couldn't persist bad words", slog.Any("err", err))
	}
}
