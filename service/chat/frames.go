package chat

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Wire events. Names are part of the client protocol and must not change.
const (
	EventNewMessage  = "newMessage"     // data: full message record
	EventOnlineUsers = "getOnlineUsers" // data: array of online user id strings
)

// Frame is the JSON envelope for every server -> client event.
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func EncodeFrame(event string, data interface{}) ([]byte, error) {
	b, err := json.Marshal(&Frame{Event: event, Data: data})
	if err != nil {
		return nil, errors.WithMessage(err, "encode frame")
	}
	return b, nil
}

func ParseFrame(b []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, errors.WithMessage(err, "parse frame")
	}
	if f.Event == "" {
		return nil, errors.New("frame missing event")
	}
	return &f, nil
}
