// Package history keeps a linear undo/redo history of reversible commands.
package history

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

var ErrBusy = errors.New("history is busy")

const DefaultMaxSize = 50

// Command is one reversible operation. Execute runs again on redo.
type Command interface {
	Description() string
	Execute(ctx context.Context) error
	Undo(ctx context.Context) error
}

// Cleaner is implemented by commands holding resources that must be released
// once the command can no longer be undone or redone.
type Cleaner interface {
	Cleanup()
}

type entry struct {
	id  string
	cmd Command
}

func (e entry) cleanup() {
	if c, ok := e.cmd.(Cleaner); ok {
		c.Cleanup()
	}
}

type Manager struct {
	mu      sync.Mutex
	busy    bool
	undo    []entry
	redo    []entry
	maxSize int
	logger  *log.Logger
}

func New(maxSize int, logger *log.Logger) *Manager {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Manager{
		maxSize: maxSize,
		logger:  logger.With("component", "history"),
	}
}

func (m *Manager) acquire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return false
	}
	m.busy = true
	return true
}

// Execute runs cmd and records it. It returns false without running cmd when
// another operation is in progress, and false when cmd fails; in both cases
// the history is unchanged.
func (m *Manager) Execute(ctx context.Context, cmd Command) bool {
	if !m.acquire() {
		m.logger.Debug("execute rejected", "command", cmd.Description(), "err", ErrBusy)
		return false
	}

	e := entry{id: uuid.NewString(), cmd: cmd}
	err := cmd.Execute(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false

	if err != nil {
		m.logger.Error("command failed", "command", cmd.Description(), "id", e.id, "err", err)
		return false
	}

	m.undo = append(m.undo, e)
	for len(m.undo) > m.maxSize {
		m.undo[0].cleanup()
		m.undo = m.undo[1:]
	}
	for _, r := range m.redo {
		r.cleanup()
	}
	m.redo = nil

	m.logger.Debug("executed", "command", cmd.Description(), "id", e.id)
	return true
}

// Undo reverts the most recent command and returns its description.
func (m *Manager) Undo(ctx context.Context) (string, bool) {
	return m.step(&m.undo, &m.redo, "undo", func(c Command) error { return c.Undo(ctx) })
}

// Redo re-executes the most recently undone command.
func (m *Manager) Redo(ctx context.Context) (string, bool) {
	return m.step(&m.redo, &m.undo, "redo", func(c Command) error { return c.Execute(ctx) })
}

func (m *Manager) step(from, to *[]entry, op string, run func(Command) error) (string, bool) {
	m.mu.Lock()
	if m.busy || len(*from) == 0 {
		busy := m.busy
		m.mu.Unlock()
		if busy {
			m.logger.Debug(op+" rejected", "err", ErrBusy)
		}
		return "", false
	}
	m.busy = true
	top := (*from)[len(*from)-1]
	m.mu.Unlock()

	err := run(top.cmd)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false

	if err != nil {
		m.logger.Error(op+" failed", "command", top.cmd.Description(), "id", top.id, "err", err)
		return "", false
	}

	*from = (*from)[:len(*from)-1]
	*to = append(*to, top)
	m.logger.Debug(op, "command", top.cmd.Description(), "id", top.id)
	return top.cmd.Description(), true
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.busy && len(m.undo) > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.busy && len(m.redo) > 0
}

// Peek returns the descriptions that undo and redo would act on next.
func (m *Manager) Peek() (undo, redo string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.undo); n > 0 {
		undo = m.undo[n-1].cmd.Description()
	}
	if n := len(m.redo); n > 0 {
		redo = m.redo[n-1].cmd.Description()
	}
	return undo, redo
}

// Len reports the sizes of the undo and redo stacks.
func (m *Manager) Len() (undo, redo int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo), len(m.redo)
}

// Clear drops both stacks, cleaning up every command.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.undo {
		e.cleanup()
	}
	for _, e := range m.redo {
		e.cleanup()
	}
	m.undo, m.redo = nil, nil
}

// Func adapts plain functions to Command.
type Func struct {
	Desc    string
	Do      func(ctx context.Context) error
	Revert  func(ctx context.Context) error
	Release func()
}

func (f Func) Description() string { return f.Desc }

func (f Func) Execute(ctx context.Context) error { return f.Do(ctx) }

func (f Func) Undo(ctx context.Context) error { return f.Revert(ctx) }

func (f Func) Cleanup() {
	if f.Release != nil {
		f.Release()
	}
}
