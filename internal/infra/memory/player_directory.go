package memory

import (
	"context"
	"sync"

	"quiz-duel-service/internal/domain"
)

// PlayerDirectory is a map-backed app.PlayerDirectory.
type PlayerDirectory struct {
	mu      sync.RWMutex
	players map[string]domain.Player
}

func NewPlayerDirectory(players ...domain.Player) *PlayerDirectory {
	d := &PlayerDirectory{players: make(map[string]domain.Player, len(players))}
	for _, p := range players {
		d.players[p.ID] = p
	}
	return d
}

func (d *PlayerDirectory) Resolve(_ context.Context, playerID string) (domain.Player, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if p, ok := d.players[playerID]; ok {
		return p, nil
	}
	return domain.Player{}, domain.ErrPlayerNotFound
}

func (d *PlayerDirectory) Add(p domain.Player) {
	d.mu.Lock()
	d.players[p.ID] = p
	d.mu.Unlock()
}
