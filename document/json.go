package document

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// nodeBuffer is how a Node.js Buffer serializes to JSON.
type nodeBuffer struct {
	Type string `json:"type"`
	Data []int  `json:"data"`
}

// UnmarshalJSON picks the variant from the JSON shape: a string is
// InlineBase64, a serialized buffer object or a byte array is RawBytes, null
// is absent.
func (p *Payload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = Payload{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "pdf")
		}
		*p = InlineBase64(s)
		return nil
	case '{':
		var buf nodeBuffer
		if err := json.Unmarshal(data, &buf); err != nil {
			return errors.Wrap(err, "pdf")
		}
		if buf.Type != "Buffer" {
			return errors.Errorf("pdf: unsupported object type %q", buf.Type)
		}
		raw, err := toBytes(buf.Data)
		if err != nil {
			return err
		}
		*p = RawBytes(raw)
		return nil
	case '[':
		var values []int
		if err := json.Unmarshal(data, &values); err != nil {
			return errors.Wrap(err, "pdf")
		}
		raw, err := toBytes(values)
		if err != nil {
			return err
		}
		*p = RawBytes(raw)
		return nil
	default:
		return errors.Errorf("pdf: expected string, byte array or buffer, got %s", string(data[:1]))
	}
}

// MarshalJSON writes the payload back as base64 text.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case KindInlineBase64:
		return json.Marshal(p.text)
	case KindRawBytes:
		return json.Marshal(p.raw)
	default:
		return []byte("null"), nil
	}
}

func toBytes(values []int) ([]byte, error) {
	raw := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, errors.Errorf("pdf: byte value %d at index %d out of range", v, i)
		}
		raw[i] = byte(v)
	}
	return raw, nil
}
