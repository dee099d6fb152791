package decode

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Options customizes decode behavior.
type Options struct {
	// WeaklyTypedInput enables lenient conversions ("123" -> int etc).
	// Off by default: envelope payloads are validated strictly.
	WeaklyTypedInput bool
}

func DefaultOptions() Options {
	return Options{}
}

// Payload decodes a raw JSON object into an arbitrary struct T using
// `json` tags. Unknown fields are ignored; type mismatches are errors.
// T is typically a per-envelope payload such as JoinRoomPayload.
func Payload[T any](raw json.RawMessage, opts ...Options) (*T, error) {
	if len(raw) == 0 {
		return nil, errors.New("payload is empty")
	}

	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "payload is not a JSON object")
	}

	var out T
	decCfg := &mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
	}
	dec, err := mapstructure.NewDecoder(decCfg)
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, errors.Wrap(err, "payload shape mismatch")
	}
	return &out, nil
}
