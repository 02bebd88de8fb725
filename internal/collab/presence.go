package collab

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// PresenceManager tracks the latest cursor and selection of each user in a
// room. Entries are stored by value so callers never share them.
type PresenceManager struct {
	mu      sync.RWMutex
	entries map[string]PresencePayload // userID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{entries: make(map[string]PresencePayload)}
}

func (pm *PresenceManager) Update(userID string, p PresencePayload) {
	pm.mu.Lock()
	pm.entries[userID] = p
	pm.mu.Unlock()
}

func (pm *PresenceManager) Remove(userID string) {
	pm.mu.Lock()
	delete(pm.entries, userID)
	pm.mu.Unlock()
}

// ClearSelection drops selections of nodes for which exists is false and
// returns the users whose selection was dropped.
func (pm *PresenceManager) ClearSelection(exists func(id string) bool) []string {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var cleared []string
	for user, p := range pm.entries {
		if p.SelectedID == "" || exists(p.SelectedID) {
			continue
		}
		p.SelectedID = ""
		pm.entries[user] = p
		cleared = append(cleared, user)
	}
	return cleared
}

// Snapshot copies every entry.
func (pm *PresenceManager) Snapshot() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make(map[string]*PresencePayload, len(pm.entries))
	for user, p := range pm.entries {
		out[user] = &p
	}
	return out
}

func (pm *PresenceManager) StateMessage() *Message {
	payload, err := json.Marshal(PresenceStatePayload{Presences: pm.Snapshot()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{Type: TypePresenceState, Payload: payload}
}
