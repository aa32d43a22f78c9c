package serve

import (
	"encoding/json"

	"github.com/praetorian-inc/bfc/pkg/types"
)

// Request represents an incoming NDJSON request
type Request struct {
	Type    string          `json:"type"` // "check" | "compile" | "tree" | "close"
	Payload json.RawMessage `json:"payload"`
}

// SourcePayload is the payload for "check" and "tree" requests
type SourcePayload struct {
	File   string `json:"file"`
	Source string `json:"source"`
}

// CompilePayload is the payload for "compile" requests. Arch defaults to amd64.
type CompilePayload struct {
	File   string `json:"file"`
	Source string `json:"source"`
	Arch   string `json:"arch,omitempty"`
}

// CheckResult lists the syntax errors of one source. It is empty when the
// source parses.
type CheckResult struct {
	File        string            `json:"file"`
	Diagnostics types.ParseErrors `json:"diagnostics"`
}

// TreeResult carries the parsed tree, or diagnostics when parsing fails.
type TreeResult struct {
	File        string            `json:"file"`
	Tree        []types.Node      `json:"tree,omitempty"`
	Diagnostics types.ParseErrors `json:"diagnostics"`
}

// CompileResult carries the generated assembly, or diagnostics when parsing
// fails.
type CompileResult struct {
	File        string            `json:"file"`
	Arch        string            `json:"arch"`
	Assembly    string            `json:"assembly,omitempty"`
	Bytes       int               `json:"bytes"`
	Diagnostics types.ParseErrors `json:"diagnostics"`
}

// Response represents an outgoing NDJSON response
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"` // "ready" | "check" | "compile" | "tree" | "decode" | "unknown"
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ReadyData is the data field for "ready" responses
type ReadyData struct {
	Version string   `json:"version"`
	Arches  []string `json:"arches"`
}
