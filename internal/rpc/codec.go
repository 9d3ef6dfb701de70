package rpc

import "encoding/json"

// Codec is the JSON wire codec of the fee service. It registers under
// connect's "json" name, so clients send application/json bodies.
type Codec struct{}

// Name returns the codec name connect negotiates on.
func (Codec) Name() string { return "json" }

// Marshal encodes a message as JSON.
func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal decodes a JSON message. An empty body leaves msg unchanged.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
