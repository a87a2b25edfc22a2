package collab

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

var ErrInvalidPresence = errors.New("invalid presence")

// Presence tracks where each collaborator in a room is: the graph-space
// cursor, the chart objects they have selected and the date they are
// viewing. Selections only ever name objects the room's chart contains.
type Presence struct {
	mu    sync.RWMutex
	users map[string]PresencePayload // userID -> presence
}

func NewPresence() *Presence {
	return &Presence{users: make(map[string]PresencePayload)}
}

// Update normalises p and records it for userID. Selection keys that known
// rejects are dropped; the date is rewritten as YYYY-MM-DD.
func (pr *Presence) Update(userID, displayName string, p PresencePayload, known func(renderKey string) bool) (PresencePayload, error) {
	if c := p.Cursor; c != nil && !finite(c.X, c.Y) {
		return PresencePayload{}, fmt.Errorf("%w: cursor is not a finite point", ErrInvalidPresence)
	}
	if p.Date != "" {
		d, err := parsePresenceDate(p.Date)
		if err != nil {
			return PresencePayload{}, fmt.Errorf("%w: date %q", ErrInvalidPresence, p.Date)
		}
		p.Date = d.Format(time.DateOnly)
	}
	p.Selection = filterKeys(p.Selection, known)
	p.DisplayName = displayName

	pr.mu.Lock()
	pr.users[userID] = p
	pr.mu.Unlock()
	return p, nil
}

func (pr *Presence) Remove(userID string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	delete(pr.users, userID)
}

// Prune drops selected keys that known no longer accepts, after objects
// were removed from the chart. It returns the presences that changed.
func (pr *Presence) Prune(known func(renderKey string) bool) map[string]PresencePayload {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	changed := make(map[string]PresencePayload)
	for user, p := range pr.users {
		kept := filterKeys(p.Selection, known)
		if len(kept) == len(p.Selection) {
			continue
		}
		p.Selection = kept
		pr.users[user] = p
		changed[user] = p
	}
	return changed
}

func (pr *Presence) All() map[string]PresencePayload {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	out := make(map[string]PresencePayload, len(pr.users))
	for k, v := range pr.users {
		out[k] = v
	}
	return out
}

func (pr *Presence) StateMessage() (*Message, error) {
	return newMessage(TypePresenceState, PresenceStatePayload{Presences: pr.All()})
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func parsePresenceDate(s string) (time.Time, error) {
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, s)
}

// filterKeys returns the distinct known keys, sorted.
func filterKeys(keys []string, known func(string) bool) []string {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if seen[k] || (known != nil && !known(k)) {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
