package ledger

import (
	"encoding/json"
	"fmt"
)

// DecodePayload normalizes a call payload into v. Payloads cross the
// boundary as JSON; in-process callers may pass the typed input structs
// directly, remote transports hand over raw bytes.
func DecodePayload(payload, v any) error {
	switch p := payload.(type) {
	case nil:
		return nil
	case json.RawMessage:
		if len(p) == 0 {
			return nil
		}
		return json.Unmarshal(p, v)
	case []byte:
		if len(p) == 0 {
			return nil
		}
		return json.Unmarshal(p, v)
	default:
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		return json.Unmarshal(raw, v)
	}
}
