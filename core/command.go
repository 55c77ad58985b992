package core

import (
	"errors"
	"sync"
)

// ErrUnknownCommand is returned by Dispatch for an unregistered ID
var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler decodes its own arguments from data and runs the command
type CommandHandler func(data *[]byte) error

// Command is one entry of the command dictionary
type Command struct {
	ID      uint16
	Name    string
	Format  string // argument format, e.g. "pin=%c value=%c"
	Handler CommandHandler
}

// IsResponse reports whether the entry is a device to host message
func (c *Command) IsResponse() bool {
	return c.Handler == nil
}

// CommandRegistry assigns IDs in registration order. Commands (with a handler)
// flow host to device, responses (nil handler) device to host.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands []*Command
	nameToID map[string]uint16
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		nameToID: make(map[string]uint16),
	}
}

// Register adds a command. Registering a name twice returns the first ID.
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := uint16(len(r.commands))
	r.commands = append(r.commands, &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	})
	r.nameToID[name] = id
	return id
}

// RegisterResponse registers a device to host message
func (r *CommandRegistry) RegisterResponse(name string, format string) uint16 {
	return r.Register(name, format, nil)
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.commands) {
		return nil, false
	}
	return r.commands[id], true
}

// Lookup returns the ID registered for name
func (r *CommandRegistry) Lookup(name string) (uint16, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	return id, ok
}

// Count returns the number of registered commands and responses
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch runs the handler registered for cmdID
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok || cmd.Handler == nil {
		return ErrUnknownCommand
	}
	return cmd.Handler(data)
}

// Entries returns every registered entry in ID order
func (r *CommandRegistry) Entries() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, len(r.commands))
	for i, c := range r.commands {
		out[i] = *c
	}
	return out
}
