package clientsync

import (
	"context"
	"sync"

	"LinkChat/logger"
	chatmodel "LinkChat/module/chat/model"
	chat "LinkChat/service/chat"
	"LinkChat/tools/errs"
)

// State of the consumer-side machine.
type State int

const (
	StateDisconnected State = iota
	StateConnected           // live, no conversation open; counts accumulate
	StateConversationOpen    // messages stream into the view, counts reset
)

// History is the store surface the machine reconciles against.
type History interface {
	QueryConversation(ctx context.Context, a, b string) ([]chatmodel.Message, error)
	MarkSeen(ctx context.Context, requesterID, counterpartID string) error
	MarkSeenByID(ctx context.Context, id string) error
}

// Machine holds one client's derived state: the ordered view of the open
// conversation, local unseen counters, and the online set. It consumes the
// server's event frames and decides append vs. count.
//
// Policy: a live message appended to the open view is marked seen immediately
// (single-message override), so the persisted seen flag never drifts from what
// the user has on screen.
type Machine struct {
	mu     sync.Mutex
	self   string
	state  State
	peer   string
	view   []chatmodel.Message
	unseen map[string]int64
	online []string
	hist   History
}

func NewMachine(self string, hist History) *Machine {
	return &Machine{
		self:   self,
		state:  StateDisconnected,
		unseen: make(map[string]int64),
		hist:   hist,
	}
}

// Connect enters the live state. Calling it again is a reset, not a second
// subscription: there is exactly one handler per event (HandleFrame), so
// repeated entry can never stack listeners.
func (m *Machine) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDisconnected {
		m.state = StateConnected
	}
}

// Disconnect drops all live-derived state. Terminal until the next Connect.
func (m *Machine) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateDisconnected
	m.peer = ""
	m.view = nil
	m.online = nil
}

// SeedCounts installs the server-computed initial unseen counts (login/refresh).
func (m *Machine) SeedCounts(counts map[string]int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unseen = make(map[string]int64, len(counts))
	for k, v := range counts {
		m.unseen[k] = v
	}
}

// OpenConversation switches to the given counterpart: backlog is marked seen
// first, then the full history replaces the view wholesale and the counter
// zeroes. Mark-seen precedes the fetch so no unseen message is double-counted
// on the next initial-count computation.
func (m *Machine) OpenConversation(ctx context.Context, peer string) error {
	m.mu.Lock()
	if m.state == StateDisconnected {
		m.mu.Unlock()
		return errs.ErrValidation.WithDetail("not connected")
	}
	m.mu.Unlock()

	if err := m.hist.MarkSeen(ctx, m.self, peer); err != nil {
		return err
	}
	msgs, err := m.hist.QueryConversation(ctx, m.self, peer)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// a disconnect may land while the mark-seen/fetch is in flight; the
	// disconnected state is terminal, so the fetched history is discarded
	if m.state == StateDisconnected {
		return errs.ErrValidation.WithDetail("disconnected during open")
	}
	m.state = StateConversationOpen
	m.peer = peer
	m.view = msgs
	m.unseen[peer] = 0
	return nil
}

// CloseConversation returns to Connected; counts accumulate again.
func (m *Machine) CloseConversation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateConversationOpen {
		m.state = StateConnected
		m.peer = ""
		m.view = nil
	}
}

// HandleFrame is the single event handler. Wire payloads arrive as decoded
// JSON values and are bound to typed structs here.
func (m *Machine) HandleFrame(ctx context.Context, f *chat.Frame) error {
	switch f.Event {
	case chat.EventNewMessage:
		msg, err := decodeMessage(f.Data)
		if err != nil {
			return err
		}
		m.onNewMessage(ctx, msg)
		return nil
	case chat.EventOnlineUsers:
		users, err := decodeStrings(f.Data)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.online = users
		m.mu.Unlock()
		return nil
	default:
		logger.Debug("[clientsync] unknown event " + f.Event)
		return nil
	}
}

func (m *Machine) onNewMessage(ctx context.Context, msg chatmodel.Message) {
	// the router echoes our own sends back to us; suppress by identity
	if msg.SenderID == m.self {
		return
	}

	m.mu.Lock()
	if m.state == StateConversationOpen && msg.SenderID == m.peer {
		m.view = append(m.view, msg) // arrival order == persistence order per pair
		m.mu.Unlock()
		if err := m.hist.MarkSeenByID(ctx, msg.ID); err != nil {
			logger.Infof("[clientsync] live mark seen failed msg=%s err=%v", msg.ID, err)
		}
		return
	}
	if m.state != StateDisconnected {
		m.unseen[msg.SenderID]++
	}
	m.mu.Unlock()
}

// AppendSent records a message of our own after the send call returned the
// confirmed persisted record. Never call it with an unconfirmed message.
func (m *Machine) AppendSent(msg chatmodel.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateConversationOpen && msg.ReceiverID == m.peer {
		m.view = append(m.view, msg)
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) OpenPeer() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peer
}

// View returns a copy of the open conversation, created_at ascending.
func (m *Machine) View() []chatmodel.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]chatmodel.Message, len(m.view))
	copy(out, m.view)
	return out
}

// Unseen returns a copy of the local counters.
func (m *Machine) Unseen() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.unseen))
	for k, v := range m.unseen {
		out[k] = v
	}
	return out
}

// Online returns the last received online set.
func (m *Machine) Online() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.online))
	copy(out, m.online)
	return out
}
