// Package luacheck validates that formula source compiles as a Lua chunk.
// The engine never executes formula code; this is a read-only parse check.
package luacheck

import (
	"fmt"
	"strings"

	lua "github.com/Shopify/go-lua"
)

// Result reports the outcome of a syntax check for one formula revision.
type Result struct {
	Name       string `json:"name"`
	DatasetTag string `json:"dataset_tag"`
	Valid      bool   `json:"valid"`
	Error      string `json:"error,omitempty"`
}

// Check compiles the given source as a Lua chunk without running it. The
// returned error carries the parser's message, including line information.
func Check(name, code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("formula %q has empty source", name)
	}

	state := lua.NewState()
	if err := lua.LoadBuffer(state, code, name, ""); err != nil {
		return fmt.Errorf("formula %q does not compile: %w", name, err)
	}
	// Discard the compiled chunk; only the parse outcome matters.
	state.Pop(1)
	return nil
}
