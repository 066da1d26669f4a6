package control

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/exapitools/npcinv/internal/engine"
	"github.com/exapitools/npcinv/internal/metrics"
	"github.com/exapitools/npcinv/internal/overlay"
)

const (
	// SocketFileName is the filename of the control socket within the runtime dir.
	SocketFileName = "control.sock"

	// SocketEnv overrides the socket location.
	SocketEnv = "NPCINV_CONTROL_SOCKET"

	// Action names supported by the control protocol.
	ActionReload  = "reload"
	ActionRules   = "rules"
	ActionFrame   = "frame"
	ActionMetrics = "metrics"

	// Response statuses.
	StatusOK    = "ok"
	StatusError = "error"
)

// Request represents a control API request.
type Request struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// Response represents a control API response.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type (
	// RulesStatus lists catalog entries and the outcome of the last reload.
	RulesStatus = engine.RulesStatus
	// Frame is the last set of drawing directives.
	Frame = overlay.Frame
	// MetricsSnapshot is the collector view.
	MetricsSnapshot = metrics.Snapshot
	// RuleMetrics is one rule's counters within MetricsSnapshot.
	RuleMetrics = metrics.RuleMetrics
)

// DefaultSocketPath returns the expected location of the control socket.
func DefaultSocketPath() (string, error) {
	if env := os.Getenv(SocketEnv); env != "" {
		return env, nil
	}
	return filepath.Join(xdg.RuntimeDir, "npcinv", SocketFileName), nil
}
