// Package plugin exposes the link formatter as a user command and as a
// listener on the store's change feed.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/starford/linktitle/internal/apperr"
)

// Handler runs a command against a set of block uuids.
type Handler func(ctx context.Context, uuids []string) (any, error)

// Command is a user-invocable action.
type Command struct {
	Key     string
	Label   string
	Handler Handler
}

// CommandInfo describes a registered command.
type CommandInfo struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Registry holds user commands in registration order.
type Registry struct {
	mu    sync.RWMutex
	cmds  map[string]Command
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{cmds: make(map[string]Command)}
}

// Register adds c. Keys are unique.
func (r *Registry) Register(c Command) error {
	if c.Key == "" {
		return errors.New("plugin: register: empty command key")
	}
	if c.Handler == nil {
		return fmt.Errorf("plugin: register %s: nil handler", c.Key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cmds[c.Key]; ok {
		return fmt.Errorf("plugin: register %s: %w", c.Key, apperr.ErrAlreadyExists)
	}
	r.cmds[c.Key] = c
	r.order = append(r.order, c.Key)
	return nil
}

// Invoke runs the command registered under key.
func (r *Registry) Invoke(ctx context.Context, key string, uuids []string) (any, error) {
	r.mu.RLock()
	c, ok := r.cmds[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("plugin: command %s: %w", key, apperr.ErrNotFound)
	}
	return c.Handler(ctx, uuids)
}

// List returns the registered commands.
func (r *Registry) List() []CommandInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CommandInfo, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, CommandInfo{Key: k, Label: r.cmds[k].Label})
	}
	return out
}
