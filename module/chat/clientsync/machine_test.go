package clientsync

import (
	"context"
	"testing"
	"time"

	chatmodel "LinkChat/module/chat/model"
	chat "LinkChat/service/chat"
)

type fakeHistory struct {
	msgs  []chatmodel.Message
	calls []string
}

func (h *fakeHistory) QueryConversation(_ context.Context, a, b string) ([]chatmodel.Message, error) {
	h.calls = append(h.calls, "query")
	var out []chatmodel.Message
	for _, m := range h.msgs {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (h *fakeHistory) MarkSeen(_ context.Context, requester, counterpart string) error {
	h.calls = append(h.calls, "markSeen")
	for i := range h.msgs {
		if h.msgs[i].SenderID == counterpart && h.msgs[i].ReceiverID == requester {
			h.msgs[i].Seen = true
		}
	}
	return nil
}

func (h *fakeHistory) MarkSeenByID(_ context.Context, id string) error {
	h.calls = append(h.calls, "markSeenByID:"+id)
	for i := range h.msgs {
		if h.msgs[i].ID == id {
			h.msgs[i].Seen = true
		}
	}
	return nil
}

// blockingHistory parks MarkSeen until released, so tests can interleave
// other transitions with an open that is still in flight.
type blockingHistory struct {
	fakeHistory
	entered chan struct{}
	release chan struct{}
}

func (h *blockingHistory) MarkSeen(ctx context.Context, requester, counterpart string) error {
	close(h.entered)
	<-h.release
	return h.fakeHistory.MarkSeen(ctx, requester, counterpart)
}

func liveMsg(id, from, to, text string) chatmodel.Message {
	return chatmodel.Message{
		ID: id, SenderID: from, ReceiverID: to, Text: text,
		CreatedAt: time.Now().UTC(),
	}
}

// wireFrame simulates a frame arriving over the socket: data comes back as
// decoded JSON (maps and float64s), not as typed structs.
func wireFrame(t *testing.T, event string, data interface{}) *chat.Frame {
	t.Helper()
	b, err := chat.EncodeFrame(event, data)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	f, err := chat.ParseFrame(b)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return f
}

func TestOpenConversationMarksSeenBeforeFetch(t *testing.T) {
	ctx := context.Background()
	hist := &fakeHistory{msgs: []chatmodel.Message{
		liveMsg("m1", "alice", "bob", "one"),
		liveMsg("m2", "alice", "bob", "two"),
		liveMsg("m3", "alice", "bob", "three"),
	}}
	m := NewMachine("bob", hist)
	m.Connect()
	m.SeedCounts(map[string]int64{"alice": 3})

	if err := m.OpenConversation(ctx, "alice"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := hist.calls; len(got) < 2 || got[0] != "markSeen" || got[1] != "query" {
		t.Fatalf("mark-seen must precede the history fetch, calls=%v", got)
	}
	if len(m.View()) != 3 {
		t.Fatalf("view should hold full history, got %d", len(m.View()))
	}
	if m.Unseen()["alice"] != 0 {
		t.Fatal("unseen counter must reset on open")
	}
	for _, msg := range hist.msgs {
		if !msg.Seen {
			t.Fatalf("backlog message %s not flipped to seen", msg.ID)
		}
	}
	if m.State() != StateConversationOpen {
		t.Fatal("should be in conversation-open state")
	}
}

func TestLiveMessageAppendsWhenConversationOpen(t *testing.T) {
	ctx := context.Background()
	hist := &fakeHistory{}
	m := NewMachine("bob", hist)
	m.Connect()
	if err := m.OpenConversation(ctx, "alice"); err != nil {
		t.Fatalf("open: %v", err)
	}

	f := wireFrame(t, chat.EventNewMessage, liveMsg("m9", "alice", "bob", "hi"))
	if err := m.HandleFrame(ctx, f); err != nil {
		t.Fatalf("handle: %v", err)
	}

	view := m.View()
	if len(view) != 1 || view[0].Text != "hi" || view[0].SenderID != "alice" {
		t.Fatalf("view = %+v", view)
	}
	if m.Unseen()["alice"] != 0 {
		t.Fatal("open conversation must not count")
	}
	// immediate single-message mark-seen policy
	found := false
	for _, c := range hist.calls {
		if c == "markSeenByID:m9" {
			found = true
		}
	}
	if !found {
		t.Fatalf("live message not marked seen, calls=%v", hist.calls)
	}
}

func TestLiveMessageCountsWhenConversationClosed(t *testing.T) {
	ctx := context.Background()
	m := NewMachine("bob", &fakeHistory{})
	m.Connect()

	for i := 0; i < 2; i++ {
		f := wireFrame(t, chat.EventNewMessage, liveMsg("m1", "alice", "bob", "hey"))
		if err := m.HandleFrame(ctx, f); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	f := wireFrame(t, chat.EventNewMessage, liveMsg("m2", "carol", "bob", "yo"))
	if err := m.HandleFrame(ctx, f); err != nil {
		t.Fatalf("handle: %v", err)
	}

	unseen := m.Unseen()
	if unseen["alice"] != 2 || unseen["carol"] != 1 {
		t.Fatalf("unseen = %v", unseen)
	}
	if len(m.View()) != 0 {
		t.Fatal("no conversation open, view must stay empty")
	}
}

func TestOwnEchoIsSuppressed(t *testing.T) {
	ctx := context.Background()
	m := NewMachine("bob", &fakeHistory{})
	m.Connect()
	if err := m.OpenConversation(ctx, "alice"); err != nil {
		t.Fatalf("open: %v", err)
	}

	// the router echoes bob's own message back on his connection
	f := wireFrame(t, chat.EventNewMessage, liveMsg("m1", "bob", "alice", "mine"))
	if err := m.HandleFrame(ctx, f); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(m.View()) != 0 {
		t.Fatal("echo must be suppressed by identity; AppendSent owns the local append")
	}
	if m.Unseen()["bob"] != 0 || m.Unseen()["alice"] != 0 {
		t.Fatal("echo must not touch counters")
	}
}

func TestAppendSentOnlyAfterConfirmation(t *testing.T) {
	ctx := context.Background()
	m := NewMachine("bob", &fakeHistory{})
	m.Connect()
	if err := m.OpenConversation(ctx, "alice"); err != nil {
		t.Fatalf("open: %v", err)
	}

	m.AppendSent(liveMsg("m1", "bob", "alice", "sent"))
	if len(m.View()) != 1 {
		t.Fatal("confirmed send should append to the open view")
	}

	// confirmed message for a different counterpart leaves the view alone
	m.AppendSent(liveMsg("m2", "bob", "carol", "elsewhere"))
	if len(m.View()) != 1 {
		t.Fatal("send to another counterpart must not leak into this view")
	}
}

func TestOnlineUsersFrame(t *testing.T) {
	ctx := context.Background()
	m := NewMachine("bob", &fakeHistory{})
	m.Connect()

	f := wireFrame(t, chat.EventOnlineUsers, []string{"alice", "bob"})
	if err := m.HandleFrame(ctx, f); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got := m.Online()
	if len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Fatalf("online = %v", got)
	}
}

func TestDisconnectDuringOpenDiscardsFetch(t *testing.T) {
	hist := &blockingHistory{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	hist.msgs = []chatmodel.Message{liveMsg("m1", "alice", "bob", "stale")}
	m := NewMachine("bob", hist)
	m.Connect()

	done := make(chan error, 1)
	go func() { done <- m.OpenConversation(context.Background(), "alice") }()

	<-hist.entered
	m.Disconnect()
	close(hist.release)

	if err := <-done; err == nil {
		t.Fatal("open racing a disconnect must not succeed")
	}
	if m.State() != StateDisconnected {
		t.Fatalf("state = %v, disconnected is terminal", m.State())
	}
	if len(m.View()) != 0 || m.OpenPeer() != "" {
		t.Fatal("fetched history must be discarded after a mid-open disconnect")
	}
}

func TestOpenConversationTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	hist := &fakeHistory{msgs: []chatmodel.Message{
		liveMsg("m1", "alice", "bob", "one"),
		liveMsg("m2", "alice", "bob", "two"),
	}}
	m := NewMachine("bob", hist)
	m.Connect()
	m.SeedCounts(map[string]int64{"alice": 2})

	if err := m.OpenConversation(ctx, "alice"); err != nil {
		t.Fatalf("first open: %v", err)
	}
	m.CloseConversation()
	if err := m.OpenConversation(ctx, "alice"); err != nil {
		t.Fatalf("second open: %v", err)
	}

	// the second mark-seen finds nothing unseen and changes nothing
	for _, msg := range hist.msgs {
		if !msg.Seen {
			t.Fatalf("message %s lost its seen flag", msg.ID)
		}
	}
	if len(m.View()) != 2 {
		t.Fatalf("view = %d messages, want the full history both times", len(m.View()))
	}
	if m.Unseen()["alice"] != 0 {
		t.Fatal("counter must stay zero on reopen")
	}
	want := []string{"markSeen", "query", "markSeen", "query"}
	if len(hist.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", hist.calls, want)
	}
	for i, w := range want {
		if hist.calls[i] != w {
			t.Fatalf("calls = %v, want %v", hist.calls, want)
		}
	}
}

func TestDisconnectResetsLiveState(t *testing.T) {
	ctx := context.Background()
	m := NewMachine("bob", &fakeHistory{})
	m.Connect()
	if err := m.OpenConversation(ctx, "alice"); err != nil {
		t.Fatalf("open: %v", err)
	}
	m.SeedCounts(map[string]int64{"carol": 4})

	m.Disconnect()
	if m.State() != StateDisconnected {
		t.Fatal("should be disconnected")
	}
	if len(m.View()) != 0 || m.OpenPeer() != "" {
		t.Fatal("view and open peer must reset")
	}
	if err := m.OpenConversation(ctx, "alice"); err == nil {
		t.Fatal("opening a conversation while disconnected must fail")
	}

	// reconnect: single handler semantics mean no duplicated deliveries
	m.Connect()
	f := wireFrame(t, chat.EventNewMessage, liveMsg("m1", "alice", "bob", "back"))
	if err := m.HandleFrame(ctx, f); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if m.Unseen()["alice"] != 1 {
		t.Fatalf("unseen after reconnect = %v", m.Unseen())
	}
}
