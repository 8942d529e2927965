package game

import (
	"fmt"
	"sync"
)

// Info describes a playable game for menu rendering and dispatch.
type Info struct {
	ID        string // game identifier stored on bets/sessions
	Title     string // display title including emoji
	MultiStep bool   // true for session-based games (crash, mines)
}

// Registry manages game registration and lookup.
// It provides a thread-safe way to register and retrieve games by id.
type Registry struct {
	games map[string]Info
	order []string
	mu    sync.RWMutex
}

// NewRegistry creates a new game registry.
func NewRegistry() *Registry {
	return &Registry{
		games: make(map[string]Info),
	}
}

// Register adds a game to the registry, preserving registration order
// for menu rendering.
func (r *Registry) Register(info Info) error {
	if info.ID == "" {
		return fmt.Errorf("game id cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[info.ID]; !ok {
		r.order = append(r.order, info.ID)
	}
	r.games[info.ID] = info
	return nil
}

// Get retrieves a game by its id.
func (r *Registry) Get(id string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.games[id]
	return info, ok
}

// Title returns the display title for a game id, or the id itself when
// the game is unknown.
func (r *Registry) Title(id string) string {
	if info, ok := r.Get(id); ok {
		return info.Title
	}
	return id
}

// List returns all registered games in registration order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		games = append(games, r.games[id])
	}
	return games
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
