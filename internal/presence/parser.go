package presence

import (
	"encoding/json"
	"fmt"
)

// Parser deserializes an Activity received from a feed.
type Parser interface {
	Parse(data []byte) (*Activity, error)
}

// JSONParser parses a JSON-encoded Activity.
type JSONParser struct{}

func (p *JSONParser) Parse(data []byte) (*Activity, error) {
	var a Activity
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse activity: %w", err)
	}
	if a.Details == "" {
		return nil, fmt.Errorf("not an activity: missing details")
	}
	return &a, nil
}
