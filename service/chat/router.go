package chat

import (
	"context"
	"strings"

	"LinkChat/logger"
	chatmodel "LinkChat/module/chat/model"
	"LinkChat/tools/errs"
)

// MessageStore is the slice of the persisted conversation store the router needs.
// Durable insert must happen before any live push.
type MessageStore interface {
	Append(ctx context.Context, m chatmodel.Message) (chatmodel.Message, error)
}

// DeliveryResult reports what happened to one message.
type DeliveryResult struct {
	Message        chatmodel.Message // the canonical persisted record
	SenderOnline   bool
	ReceiverOnline bool
	Emitted        int // successful emissions, at most one per live connection
	EmitFailures   int // sockets that vanished between lookup and send; non-fatal
}

// Router persists a newly created message and pushes it to whichever of the two
// parties is live.
type Router struct {
	store MessageStore
	reg   *Registry
}

func NewRouter(store MessageStore, reg *Registry) *Router {
	return &Router{store: store, reg: reg}
}

// Deliver validates, persists, then emits. Persistence strictly precedes
// notification: a crash in between loses only the live push, never the record.
//
// The sender's own connection receives the echo too; suppressing it by identity
// is the receiving client's job, not the router's. The router only guarantees at
// most one emission per distinct live connection.
func (r *Router) Deliver(ctx context.Context, in chatmodel.Message) (DeliveryResult, error) {
	var res DeliveryResult

	if err := Validate(in); err != nil {
		return res, err
	}

	stored, err := r.store.Append(ctx, in)
	if err != nil {
		return res, errs.ErrPersistence.WithDetail(err.Error())
	}
	res.Message = stored

	recvSink, recvOK := r.reg.Lookup(stored.ReceiverID)
	sendSink, sendOK := r.reg.Lookup(stored.SenderID)
	res.ReceiverOnline = recvOK
	res.SenderOnline = sendOK
	if !recvOK {
		WSPushOffline.Inc()
	}

	emitted := make(map[Sink]bool, 2)
	for _, s := range []Sink{recvSink, sendSink} {
		if s == nil || emitted[s] {
			continue
		}
		emitted[s] = true
		if err := s.Emit(EventNewMessage, stored); err != nil {
			// committed record stands; receiver catches up on its next history fetch
			logger.Infof("[Router] emit failed msg=%s err=%v", stored.ID, err)
			res.EmitFailures++
			continue
		}
		res.Emitted++
	}
	return res, nil
}

// Validate rejects a malformed message. Callers with side effects of their own
// (media upload) should run it before those, so a rejection leaves no trace.
func Validate(m chatmodel.Message) error {
	if strings.TrimSpace(m.SenderID) == "" || strings.TrimSpace(m.ReceiverID) == "" {
		return errs.ErrValidation.WithDetail("sender and receiver required")
	}
	if m.SenderID == m.ReceiverID {
		return errs.ErrValidation.WithDetail("cannot message yourself")
	}
	hasText := strings.TrimSpace(m.Text) != ""
	hasImage := m.Image != ""
	if hasText == hasImage {
		return errs.ErrValidation.WithDetail("exactly one of text or image required")
	}
	return nil
}
