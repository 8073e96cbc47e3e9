package chat

import (
	"context"
	"testing"
	"time"

	chatmodel "LinkChat/module/chat/model"
	"LinkChat/tools/errs"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memStore struct {
	msgs    []chatmodel.Message
	failing bool
}

func (s *memStore) Append(_ context.Context, m chatmodel.Message) (chatmodel.Message, error) {
	if s.failing {
		return chatmodel.Message{}, errors.New("store down")
	}
	m.ID = primitive.NewObjectID().Hex()
	m.Seen = false
	m.CreatedAt = time.Now().UTC()
	s.msgs = append(s.msgs, m)
	return m, nil
}

func (s *memStore) countUnseen(senderID, receiverID string) int64 {
	var n int64
	for _, m := range s.msgs {
		if m.SenderID == senderID && m.ReceiverID == receiverID && !m.Seen {
			n++
		}
	}
	return n
}

func (s *memStore) markSeen(senderID, receiverID string) {
	for i := range s.msgs {
		if s.msgs[i].SenderID == senderID && s.msgs[i].ReceiverID == receiverID {
			s.msgs[i].Seen = true
		}
	}
}

func textMsg(from, to, text string) chatmodel.Message {
	return chatmodel.Message{SenderID: from, ReceiverID: to, Text: text}
}

func TestDeliverBothOnline(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(nil)
	store := &memStore{}
	router := NewRouter(store, reg)

	alice := &fakeSink{}
	bob := &fakeSink{}
	reg.Connect(ctx, "alice", alice)
	reg.Connect(ctx, "bob", bob)

	res, err := router.Deliver(ctx, textMsg("alice", "bob", "hi"))
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(store.msgs) != 1 {
		t.Fatalf("persisted %d times, want exactly once", len(store.msgs))
	}
	if !res.SenderOnline || !res.ReceiverOnline {
		t.Fatal("both parties were online")
	}
	if res.Emitted != 2 {
		t.Fatalf("emitted %d, want 2 (receiver + sender echo)", res.Emitted)
	}
	if n := bob.countEvent(EventNewMessage); n != 1 {
		t.Fatalf("bob got %d newMessage events, want 1", n)
	}
	if n := alice.countEvent(EventNewMessage); n != 1 {
		t.Fatalf("alice got %d newMessage events, want 1 (echo)", n)
	}

	got := res.Message
	if got.ID == "" || got.Seen || got.CreatedAt.IsZero() {
		t.Fatalf("stored record not canonical: %+v", got)
	}
	if got.SenderID != "alice" || got.Text != "hi" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestDeliverReceiverOffline(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(nil)
	store := &memStore{}
	router := NewRouter(store, reg)

	alice := &fakeSink{}
	reg.Connect(ctx, "alice", alice)

	res, err := router.Deliver(ctx, textMsg("alice", "bob", "you there?"))
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(store.msgs) != 1 {
		t.Fatal("message must persist even when the receiver is offline")
	}
	if res.ReceiverOnline {
		t.Fatal("receiver was offline")
	}
	if res.Emitted != 1 {
		t.Fatalf("emitted %d, want 1 (sender echo only)", res.Emitted)
	}

	// the missed message surfaces in the receiver's unseen count
	if n := store.countUnseen("alice", "bob"); n != 1 {
		t.Fatalf("countUnseen = %d, want 1 after an offline delivery", n)
	}

	// marking seen twice yields the same state as once
	store.markSeen("alice", "bob")
	if n := store.countUnseen("alice", "bob"); n != 0 {
		t.Fatalf("countUnseen = %d after markSeen, want 0", n)
	}
	store.markSeen("alice", "bob")
	if n := store.countUnseen("alice", "bob"); n != 0 {
		t.Fatalf("countUnseen = %d after repeated markSeen, want 0", n)
	}
}

func TestDeliverBothOffline(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	router := NewRouter(store, NewRegistry(nil))

	res, err := router.Deliver(ctx, textMsg("alice", "bob", "into the void"))
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(store.msgs) != 1 || res.Emitted != 0 {
		t.Fatalf("want persisted once with zero emissions, got %d/%d", len(store.msgs), res.Emitted)
	}
}

func TestDeliverValidation(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	router := NewRouter(store, NewRegistry(nil))

	cases := []chatmodel.Message{
		{SenderID: "alice", ReceiverID: "bob"},                                             // empty body
		{SenderID: "alice", ReceiverID: "bob", Text: "hi", Image: "/media/x.png"},          // both set
		{SenderID: "alice", ReceiverID: "alice", Text: "hi"},                               // self message
		{ReceiverID: "bob", Text: "hi"},                                                    // no sender
	}
	for i, m := range cases {
		_, err := router.Deliver(ctx, m)
		if err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
		ce, ok := errs.Unwrap(err)
		if !ok || ce.Code != errs.ErrValidation.Code {
			t.Fatalf("case %d: want validation code, got %v", i, err)
		}
	}
	if len(store.msgs) != 0 {
		t.Fatal("validation failures must have no side effects")
	}
}

func TestDeliverPersistenceFailureAborts(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(nil)
	store := &memStore{failing: true}
	router := NewRouter(store, reg)

	bob := &fakeSink{}
	reg.Connect(ctx, "bob", bob)

	_, err := router.Deliver(ctx, textMsg("alice", "bob", "hi"))
	if err == nil {
		t.Fatal("expected persistence error")
	}
	ce, ok := errs.Unwrap(err)
	if !ok || ce.Code != errs.ErrPersistence.Code {
		t.Fatalf("want persistence code, got %v", err)
	}
	if n := bob.countEvent(EventNewMessage); n != 0 {
		t.Fatal("no emission may happen when persistence fails")
	}
}

func TestDeliverEmissionFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(nil)
	store := &memStore{}
	router := NewRouter(store, reg)

	bob := &fakeSink{fail: true}
	alice := &fakeSink{}
	reg.Connect(ctx, "bob", bob)
	reg.Connect(ctx, "alice", alice)

	res, err := router.Deliver(ctx, textMsg("alice", "bob", "hi"))
	if err != nil {
		t.Fatalf("emission failure must not fail the delivery: %v", err)
	}
	if len(store.msgs) != 1 {
		t.Fatal("record must stay committed")
	}
	if res.EmitFailures != 1 || res.Emitted != 1 {
		t.Fatalf("want 1 failure + 1 success, got %d/%d", res.EmitFailures, res.Emitted)
	}
}
