package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/exapitools/npcinv/internal/control"
)

const (
	// defaultTimeout is used when the caller does not provide a context deadline.
	defaultTimeout = 3 * time.Second
)

// Client talks to the running npcinv daemon over its control socket.
type Client struct {
	socketPath string
}

type (
	// RulesStatus lists catalog entries and the outcome of the last reload.
	RulesStatus = control.RulesStatus
	// Frame is the daemon's most recent set of drawing directives.
	Frame = control.Frame
	// MetricsSnapshot mirrors the collector view returned by the daemon.
	MetricsSnapshot = control.MetricsSnapshot
	// RuleMetrics mirrors a single rule's counters.
	RuleMetrics = control.RuleMetrics
)

// New creates a client that connects to the provided socket path. When path is
// empty, the default runtime path is used.
func New(path string) (*Client, error) {
	if path == "" {
		var err error
		path, err = control.DefaultSocketPath()
		if err != nil {
			return nil, err
		}
	}
	return &Client{socketPath: path}, nil
}

// Reload asks the daemon to rescan its rule directory.
func (c *Client) Reload(ctx context.Context, reason string) error {
	req := control.Request{Action: control.ActionReload}
	if reason != "" {
		req.Params = map[string]any{"reason": reason}
	}
	return c.do(ctx, req, nil)
}

// Rules retrieves the rule catalog and the outcome of the last reload.
func (c *Client) Rules(ctx context.Context) (RulesStatus, error) {
	var status RulesStatus
	if err := c.do(ctx, control.Request{Action: control.ActionRules}, &status); err != nil {
		return RulesStatus{}, err
	}
	return status, nil
}

// Frame retrieves the last frame rendered by the daemon.
func (c *Client) Frame(ctx context.Context) (Frame, error) {
	var frame Frame
	if err := c.do(ctx, control.Request{Action: control.ActionFrame}, &frame); err != nil {
		return Frame{}, err
	}
	return frame, nil
}

// Metrics retrieves the daemon's match counters.
func (c *Client) Metrics(ctx context.Context) (MetricsSnapshot, error) {
	var snapshot MetricsSnapshot
	if err := c.do(ctx, control.Request{Action: control.ActionMetrics}, &snapshot); err != nil {
		return MetricsSnapshot{}, err
	}
	return snapshot, nil
}

func (c *Client) do(ctx context.Context, req control.Request, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("dial control socket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	var resp control.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != control.StatusOK {
		if resp.Error == "" {
			resp.Error = "unknown control error"
		}
		return errors.New(resp.Error)
	}
	if out == nil || resp.Data == nil {
		return nil
	}
	data, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
