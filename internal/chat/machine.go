// Package chat implements the turn state machine of a conversation.
//
// A Machine owns the ordered turns and allows at most one exchange in
// flight: Submit appends the user turn and a pending bot placeholder, and
// the placeholder is filled by Resolve or ResolveError. The machine is not
// safe for concurrent use; the chat surface touches it from a single loop.
package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diogo/grantchat/internal/models"
)

// Sender identifies who produced a turn
type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// Turn is one message of the conversation
type Turn struct {
	Sender Sender
	Text   string
	// Pending marks the bot placeholder awaiting its reply
	Pending bool
	At      time.Time
}

// State is the phase of the current exchange
type State int

const (
	StateIdle State = iota
	StateUserSubmitted
	StateAwaitingReply
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUserSubmitted:
		return "user-submitted"
	case StateAwaitingReply:
		return "awaiting-reply"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrEmptyInput  = errors.New("message is empty")
	ErrBusy        = errors.New("a reply is still pending")
	ErrTerminated  = errors.New("the conversation has ended")
	ErrNotAwaiting = errors.New("no reply is pending")
)

// Machine drives one conversation
type Machine struct {
	turns        []Turn
	state        State
	version      uint64
	exchange     uint64
	minPending   time.Duration
	pendingSince time.Time
	now          func() time.Time
}

// Option configures a Machine
type Option func(*Machine)

// WithMinPending sets how long the pending placeholder stays visible at
// least, even when the reply arrives sooner.
func WithMinPending(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.minPending = d
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMachine returns an idle, empty conversation
func NewMachine(opts ...Option) *Machine {
	m := &Machine{state: StateIdle, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit starts an exchange. It appends the user turn and a pending bot turn
// and returns the trimmed prompt to send. When the machine is not idle or
// the text is blank the conversation is left unchanged.
func (m *Machine) Submit(text string) (string, error) {
	if err := m.requireIdle(); err != nil {
		return "", err
	}

	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return "", ErrEmptyInput
	}

	now := m.now()
	m.turns = append(m.turns, Turn{Sender: SenderUser, Text: prompt, At: now})
	m.state = StateUserSubmitted
	m.touch()

	m.turns = append(m.turns, Turn{Sender: SenderBot, Pending: true, At: now})
	m.state = StateAwaitingReply
	m.pendingSince = now
	m.exchange++
	m.touch()

	return prompt, nil
}

// Resolve fills the pending bot turn with reply and returns to idle
func (m *Machine) Resolve(reply string) error {
	if err := m.requireAwaiting(); err != nil {
		return err
	}

	last := &m.turns[len(m.turns)-1]
	last.Text = reply
	last.Pending = false
	last.At = m.now()
	m.state = StateIdle
	m.touch()
	return nil
}

// ResolveError fills the pending bot turn with the fixed fallback reply
func (m *Machine) ResolveError() error {
	return m.Resolve(models.FallbackReply)
}

// Reset clears the conversation. A terminated conversation cannot be reset.
// A reply still in flight belongs to the previous exchange and is rejected
// by Exchange checks.
func (m *Machine) Reset() error {
	if m.state == StateTerminated {
		return ErrTerminated
	}
	m.turns = nil
	m.state = StateIdle
	m.pendingSince = time.Time{}
	m.exchange++
	m.touch()
	return nil
}

// Terminate ends the conversation with a system turn carrying notice.
// A pending placeholder is resolved with the fallback reply first.
// Terminating twice has no further effect.
func (m *Machine) Terminate(notice string) {
	if m.state == StateTerminated {
		return
	}
	if m.state == StateAwaitingReply {
		_ = m.ResolveError()
	}
	if notice == "" {
		notice = models.SessionEndedNotice
	}
	m.turns = append(m.turns, Turn{Sender: SenderSystem, Text: notice, At: m.now()})
	m.state = StateTerminated
	m.exchange++
	m.touch()
}

// Seed appends a bot turn outside an exchange, such as the session greeting
func (m *Machine) Seed(text string) error {
	if err := m.requireIdle(); err != nil {
		return err
	}
	m.turns = append(m.turns, Turn{Sender: SenderBot, Text: text, At: m.now()})
	m.touch()
	return nil
}

// Restore loads previously saved turns into an empty idle conversation.
// Pending turns are dropped.
func (m *Machine) Restore(turns []Turn) error {
	if err := m.requireIdle(); err != nil {
		return err
	}
	if len(m.turns) > 0 {
		return fmt.Errorf("cannot restore into a conversation with %d turns", len(m.turns))
	}
	for _, t := range turns {
		if t.Pending {
			continue
		}
		m.turns = append(m.turns, t)
	}
	m.touch()
	return nil
}

// HoldFor reports how long a reply that arrived at now must be held back so
// the placeholder has been visible for the minimum pending duration.
func (m *Machine) HoldFor(now time.Time) time.Duration {
	if m.state != StateAwaitingReply || m.minPending <= 0 {
		return 0
	}
	remaining := m.minPending - now.Sub(m.pendingSince)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Turns returns a copy of the conversation
func (m *Machine) Turns() []Turn {
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Len returns the number of turns
func (m *Machine) Len() int {
	return len(m.turns)
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Version increases on every change to the conversation
func (m *Machine) Version() uint64 {
	return m.version
}

// Exchange identifies the current exchange. It changes on Submit, Reset
// and Terminate, so a reply can be matched to the exchange that asked for it.
func (m *Machine) Exchange() uint64 {
	return m.exchange
}

// Pending reports whether a bot placeholder is awaiting its reply
func (m *Machine) Pending() bool {
	return m.state == StateAwaitingReply
}

// Terminated reports whether the conversation has ended
func (m *Machine) Terminated() bool {
	return m.state == StateTerminated
}

// LastReply returns the text of the most recent resolved bot turn
func (m *Machine) LastReply() (string, bool) {
	for i := len(m.turns) - 1; i >= 0; i-- {
		t := m.turns[i]
		if t.Sender == SenderBot && !t.Pending {
			return t.Text, true
		}
	}
	return "", false
}

// Validate checks that at most one turn is pending, that it is the last one
// and that it agrees with the state.
func (m *Machine) Validate() error {
	pending := -1
	for i, t := range m.turns {
		if !t.Pending {
			continue
		}
		if pending >= 0 {
			return fmt.Errorf("turns %d and %d are both pending", pending, i)
		}
		if t.Sender != SenderBot {
			return fmt.Errorf("turn %d is pending but sent by %s", i, t.Sender)
		}
		pending = i
	}

	if pending >= 0 && pending != len(m.turns)-1 {
		return fmt.Errorf("pending turn %d is not the last of %d", pending, len(m.turns))
	}
	if (pending >= 0) != (m.state == StateAwaitingReply) {
		return fmt.Errorf("state %s disagrees with pending turn %d", m.state, pending)
	}
	return nil
}

func (m *Machine) requireAwaiting() error {
	switch m.state {
	case StateAwaitingReply:
		return nil
	case StateTerminated:
		return ErrTerminated
	}
	return ErrNotAwaiting
}

func (m *Machine) requireIdle() error {
	switch m.state {
	case StateIdle:
		return nil
	case StateTerminated:
		return ErrTerminated
	}
	return ErrBusy
}

func (m *Machine) touch() {
	m.version++
}
