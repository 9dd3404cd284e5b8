package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrUnknownCommand  = errors.New("command: unknown command")
	ErrDuplicateName   = errors.New("command: duplicate name")
	ErrDuplicateOpcode = errors.New("command: duplicate opcode")
	ErrEmptyName       = errors.New("command: empty name")
)

// Registry is an immutable name -> opcode table. It is safe for concurrent
// reads once constructed.
type Registry struct {
	byName   map[string]Command
	byOpcode map[byte]Command
	ordered  []Command
}

// NewRegistry builds a registry, rejecting name or opcode collisions.
func NewRegistry(cmds ...Command) (*Registry, error) {
	r := &Registry{
		byName:   make(map[string]Command, len(cmds)),
		byOpcode: make(map[byte]Command, len(cmds)),
		ordered:  make([]Command, 0, len(cmds)),
	}
	for _, cmd := range cmds {
		cmd.Name = strings.TrimSpace(cmd.Name)
		if cmd.Name == "" {
			return nil, fmt.Errorf("%w: opcode 0x%02X", ErrEmptyName, cmd.Opcode)
		}
		if prev, ok := r.byName[cmd.Name]; ok {
			return nil, fmt.Errorf("%w: %q (0x%02X and 0x%02X)", ErrDuplicateName, cmd.Name, prev.Opcode, cmd.Opcode)
		}
		if prev, ok := r.byOpcode[cmd.Opcode]; ok {
			return nil, fmt.Errorf("%w: 0x%02X (%q and %q)", ErrDuplicateOpcode, cmd.Opcode, prev.Name, cmd.Name)
		}
		r.byName[cmd.Name] = cmd
		r.byOpcode[cmd.Opcode] = cmd
		r.ordered = append(r.ordered, cmd)
	}
	sort.Slice(r.ordered, func(i, j int) bool {
		return r.ordered[i].Opcode < r.ordered[j].Opcode
	})
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide STS command registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(stsCommands...)
		if err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Lookup resolves name to its command.
func (r *Registry) Lookup(name string) (Command, error) {
	key := strings.TrimSpace(name)
	cmd, ok := r.byName[key]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, key)
	}
	return cmd, nil
}

// ByOpcode resolves an opcode back to its command.
func (r *Registry) ByOpcode(op byte) (Command, bool) {
	cmd, ok := r.byOpcode[op]
	return cmd, ok
}

// All returns every command ordered by opcode.
func (r *Registry) All() []Command {
	out := make([]Command, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Group returns the commands of one group ordered by opcode.
func (r *Registry) Group(g Group) []Command {
	out := make([]Command, 0)
	for _, cmd := range r.ordered {
		if cmd.Group == g {
			out = append(out, cmd)
		}
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.ordered)
}
