// Package codec centralizes JSON handling for the IPC payloads. Encoding
// keeps ASCII-safe UTF-8 and omits null fields via struct tags; decoding
// is lenient so additive protocol changes from the Discord client never
// break us.
package codec

import (
	"bytes"
	"encoding/json"
)

// Marshal serializes v without HTML escaping and without the trailing
// newline json.Encoder appends.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal parses b into v, ignoring fields v does not declare.
func Unmarshal(b []byte, v any) error {
	return json.Unmarshal(b, v)
}
