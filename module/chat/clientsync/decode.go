package clientsync

import (
	"time"

	chatmodel "LinkChat/module/chat/model"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// decodeMessage binds a decoded JSON payload to the message struct. Weakly
// typed by intent: a replayed frame may carry numbers as float64 and the
// timestamp as an RFC3339 string.
func decodeMessage(data interface{}) (chatmodel.Message, error) {
	var out chatmodel.Message
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return out, errors.WithMessage(err, "new decoder")
	}
	if err := dec.Decode(data); err != nil {
		return out, errors.WithMessage(err, "decode newMessage payload")
	}
	return out, nil
}

func decodeStrings(data interface{}) ([]string, error) {
	var out []string
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "new decoder")
	}
	if err := dec.Decode(data); err != nil {
		return nil, errors.WithMessage(err, "decode getOnlineUsers payload")
	}
	return out, nil
}
