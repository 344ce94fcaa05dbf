package bridge

import (
	"strings"

	"github.com/solraven/keeper/syncmap"
)

// Roster tracks the users currently present in the room. The client updates
// it from join and leave events and from the session snapshot sent after
// every (re)connect.
type Roster struct {
	users *syncmap.Map[string, User]
}

func NewRoster() *Roster {
	return &Roster{users: syncmap.New[string, User]()}
}

// Put records a user as present.
func (r *Roster) Put(u User) {
	r.users.Store(u.ID, u)
}

// Remove records a user as absent.
func (r *Roster) Remove(id string) {
	r.users.Delete(id)
}

// Reset replaces the whole roster with a session snapshot.
func (r *Roster) Reset(us []User) {
	for id := range r.users.All() {
		r.users.Delete(id)
	}
	for _, u := range us {
		r.users.Store(u.ID, u)
	}
}

// Present reports whether a user is in the room.
func (r *Roster) Present(id string) bool {
	_, ok := r.users.Load(id)
	return ok
}

// ByName finds a present user by display name, case-insensitively.
// A leading @ on name is ignored.
func (r *Roster) ByName(name string) (User, bool) {
	name = strings.TrimPrefix(name, "@")
	for _, u := range r.users.All() {
		if strings.EqualFold(u.Name, name) {
			return u, true
		}
	}
	return User{}, false
}

// Users returns a snapshot of everyone present.
func (r *Roster) Users() []User {
	us := make([]User, 0, r.users.Len())
	for _, u := range r.users.All() {
		us = append(us, u)
	}
	return us
}

// Len returns the number of present users.
func (r *Roster) Len() int {
	return r.users.Len()
}
