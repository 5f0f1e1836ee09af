// Package presence keeps track of who the client believes is in a room.
package presence

import (
	"sort"

	"github.com/c-pro/geche"
)

// Roster is a set of user ids safe for concurrent use.
// Adding a present user and removing an absent one are no-ops.
type Roster struct {
	users *geche.Locker[string, struct{}]
}

func NewRoster() *Roster {
	return &Roster{
		users: geche.NewLocker[string, struct{}](geche.NewMapCache[string, struct{}]()),
	}
}

// Add inserts user and reports whether it was absent before.
func (r *Roster) Add(user string) bool {
	tx := r.users.Lock()
	defer tx.Unlock()

	if _, err := tx.Get(user); err == nil {
		return false
	}
	tx.Set(user, struct{}{})
	return true
}

// Remove deletes user and reports whether it was present.
func (r *Roster) Remove(user string) bool {
	tx := r.users.Lock()
	defer tx.Unlock()

	if _, err := tx.Get(user); err != nil {
		return false
	}
	_ = tx.Del(user)
	return true
}

// Merge adds every user of a snapshot without dropping anyone.
func (r *Roster) Merge(users []string) {
	tx := r.users.Lock()
	defer tx.Unlock()

	for _, u := range users {
		tx.Set(u, struct{}{})
	}
}

// Replace makes the roster exactly the given set.
func (r *Roster) Replace(users []string) {
	tx := r.users.Lock()
	defer tx.Unlock()

	keep := make(map[string]struct{}, len(users))
	for _, u := range users {
		keep[u] = struct{}{}
	}
	for u := range tx.Snapshot() {
		if _, ok := keep[u]; !ok {
			_ = tx.Del(u)
		}
	}
	for u := range keep {
		tx.Set(u, struct{}{})
	}
}

func (r *Roster) Clear() {
	tx := r.users.Lock()
	defer tx.Unlock()

	for u := range tx.Snapshot() {
		_ = tx.Del(u)
	}
}

func (r *Roster) Contains(user string) bool {
	tx := r.users.RLock()
	defer tx.Unlock()

	_, err := tx.Get(user)
	return err == nil
}

func (r *Roster) Len() int {
	tx := r.users.RLock()
	defer tx.Unlock()

	return tx.Len()
}

// Users returns a sorted copy of the roster.
func (r *Roster) Users() []string {
	tx := r.users.RLock()
	snapshot := tx.Snapshot()
	tx.Unlock()

	users := make([]string, 0, len(snapshot))
	for u := range snapshot {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}
