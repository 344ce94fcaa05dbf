// Package perms implements Keeper's role registry.
//
// Roles are not stored per user. A user is an owner or a mod by membership
// in one of two persisted sets, and basic otherwise. Roles are totally
// ordered: basic < mod < owner.
package perms

import (
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/solraven/keeper/store"
)

// Role is a permission level.
type Role int

const (
	Basic Role = iota
	Mod
	Owner
)

func (r Role) String() string {
	switch r {
	case Basic:
		return "basic"
	case Mod:
		return "mod"
	case Owner:
		return "owner"
	default:
		return "role(?)"
	}
}

// ErrSelfRevoke is reported when an owner tries to revoke themselves.
var ErrSelfRevoke = errors.New("perms: can't revoke own ownership")

// docName is the persisted document name.
const docName = "roles"

type document struct {
	Owners []string `json:"owners"`
	Mods   []string `json:"mods"`
}

// Registry resolves and mutates roles. Mutations persist synchronously;
// persistence failures are logged and the in-memory state remains the
// source of truth for the session.
type Registry struct {
	mu     sync.Mutex
	st     *store.Store
	owners map[string]bool
	mods   map[string]bool
}

// Load reads the role sets from the store, creating empty defaults if the
// document is absent. A read failure degrades to empty sets.
func Load(st *store.Store) *Registry {
	var doc document
	if err := st.Load(docName, &doc); err != nil {
		slog.Error("couldn't load roles; starting empty", slog.Any("err", err))
	}
	r := &Registry{
		st:     st,
		owners: make(map[string]bool, len(doc.Owners)),
		mods:   make(map[string]bool, len(doc.Mods)),
	}
	for _, id := range doc.Owners {
		r.owners[id] = true
	}
	for _, id := range doc.Mods {
		r.mods[id] = true
	}
	return r
}

// RoleOf returns a user's role.
func (r *Registry) RoleOf(id string) Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.owners[id]:
		return Owner
	case r.mods[id]:
		return Mod
	default:
		return Basic
	}
}

// IsAtLeast reports whether a user holds at least the given role.
func (r *Registry) IsAtLeast(id string, role Role) bool {
	return r.RoleOf(id) >= role
}

// Protected reports whether a user is exempt from punitive actions.
// Mods and owners are protected.
func (r *Registry) Protected(id string) bool {
	return r.RoleOf(id) >= Mod
}

// Promote adds a user to the mod set. It reports false if the user was
// already a mod or an owner.
func (r *Registry) Promote(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owners[id] || r.mods[id] {
		return false
	}
	r.mods[id] = true
	r.persist()
	return true
}

// Demote removes a user from the mod set. It reports false if the user was
// not a mod.
func (r *Registry) Demote(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.mods[id] {
		return false
	}
	delete(r.mods, id)
	r.persist()
	return true
}

// GrantOwner adds a user to the owner set, removing them from the mod set
// if present. It reports false if the user was already an owner.
func (r *Registry) GrantOwner(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owners[id] {
		return false
	}
	delete(r.mods, id)
	r.owners[id] = true
	r.persist()
	return true
}

// RevokeOwner removes a user from the owner set. Revoking yourself is
// rejected unconditionally.
func (r *Registry) RevokeOwner(actor, id string) error {
	if actor == id {
		return ErrSelfRevoke
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.owners[id] {
		return errors.New("perms: not an owner")
	}
	delete(r.owners, id)
	r.persist()
	return nil
}

// persist writes the current sets. Callers must hold r.mu.
func (r *Registry) persist() {
	doc := document{
		Owners: slices.Sorted(maps.Keys(r.owners)),
		Mods:   slices.Sorted(maps.Keys(r.mods)),
	}
	if err := r.st.Save(docName, &doc); err != nil {
		slog.Error("couldn't persist roles", slog.Any("err", err))
	}
}
