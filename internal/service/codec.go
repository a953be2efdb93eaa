package service

import (
	"encoding/json"
	"fmt"
)

// JSONCodec carries the admin API's plain Go messages as JSON. It
// registers under the name "json", replacing Connect's protobuf JSON
// codec, so clients use the same Content-Type as with generated stubs.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("invalid JSON message: %w", err)
	}
	return nil
}
