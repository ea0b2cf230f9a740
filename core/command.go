package core

import (
	"sync"
)

// CommandHandler runs when a registered command line is received
type CommandHandler func() error

// Command represents one recognized command line
type Command struct {
	ID      uint16
	Line    string // Exact bytes including the terminator, e.g. "BOOT3WB\n"
	Reply   string // Sent after the handler returns; empty for no reply
	Handler CommandHandler
}

// CommandRegistry maps exact command lines to their handlers
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
	lineToID map[string]uint16
	nextID   uint16
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		lineToID: make(map[string]uint16),
		nextID:   0,
	}
}

// Register adds a command to the registry. Registering the same line twice
// returns the existing ID and leaves the first registration in place.
func (r *CommandRegistry) Register(line string, reply string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.lineToID[line]; exists {
		return id
	}

	id := r.nextID
	r.nextID++

	r.commands[id] = &Command{
		ID:      id,
		Line:    line,
		Reply:   reply,
		Handler: handler,
	}
	r.lineToID[line] = id

	return id
}

// Lookup finds the command whose line matches raw exactly
func (r *CommandRegistry) Lookup(raw []byte) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.lineToID[string(raw)]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Execute runs the command's handler and then sends its reply, if any
func (c *Command) Execute(t ByteTransport) error {
	if c.Handler != nil {
		if err := c.Handler(); err != nil {
			return err
		}
	}
	if c.Reply == "" {
		return nil
	}
	return SendMessage(t, c.Reply)
}
