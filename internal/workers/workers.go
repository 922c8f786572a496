package workers

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a tool input that is not valid JSON for the tool.
	ErrInvalidInput = errors.New("failed to parse request")
	ErrUnknownTool  = errors.New("unknown tool")
)

// ToolDef describes one tool a worker exposes. The MCP handler publishes it
// as <worker>_<name>.
type ToolDef struct {
	Name        string
	Description string
}

// decode unmarshals a tool input. An empty input decodes as {}.
func decode(input json.RawMessage, v any) error {
	if len(input) == 0 {
		return nil
	}
	if err := json.Unmarshal(input, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
