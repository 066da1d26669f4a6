package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/exapitools/npcinv/internal/control/client"
)

const defaultRefresh = 500 * time.Millisecond

// Watcher periodically polls the daemon and redraws a status screen.
type Watcher struct {
	Client  *client.Client
	Writer  io.Writer
	Refresh time.Duration
	Now     func() time.Time
}

// NewWatcher returns a watcher with the default refresh period.
func NewWatcher(cli *client.Client, w io.Writer) *Watcher {
	return &Watcher{Client: cli, Writer: w, Refresh: defaultRefresh}
}

// Run redraws until the context is cancelled.
func (r *Watcher) Run(ctx context.Context) error {
	if r.Writer == nil {
		r.Writer = os.Stdout
	}
	if r.Client == nil {
		return fmt.Errorf("status watcher requires a control client")
	}
	refresh := r.Refresh
	if refresh <= 0 {
		refresh = defaultRefresh
	}

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	fmt.Fprint(r.Writer, "\033[?25l")
	defer fmt.Fprint(r.Writer, "\033[?25h")

	r.render(ctx, true)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.render(ctx, true)
		}
	}
}

// Once writes a single status screen without clearing the terminal.
func (r *Watcher) Once(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("status watcher requires a control client")
	}
	return r.render(ctx, false)
}

func (r *Watcher) render(ctx context.Context, redraw bool) error {
	var buf bytes.Buffer
	if redraw {
		now := time.Now
		if r.Now != nil {
			now = r.Now
		}
		buf.WriteString("\033[H\033[2J")
		buf.WriteString("npcinv status, Ctrl+C to exit\n")
		buf.WriteString(now().Format(time.RFC1123))
		buf.WriteString("\n\n")
	}
	err := r.write(ctx, &buf)
	if err != nil {
		fmt.Fprintf(&buf, "error: %v\n", err)
	}
	w := r.Writer
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprint(w, buf.String())
	return err
}

func (r *Watcher) write(ctx context.Context, buf *bytes.Buffer) error {
	rules, err := r.Client.Rules(ctx)
	if err != nil {
		return err
	}
	buf.WriteString(Rules(rules))
	buf.WriteByte('\n')

	frame, err := r.Client.Frame(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(buf, "Last frame: %d highlighted, %d listed\n", len(frame.Highlights), len(frame.Missed))
	if frame.Listing != nil {
		for _, line := range frame.Listing.Lines {
			if line != "" {
				fmt.Fprintf(buf, "  %s\n", line)
			}
		}
	}
	buf.WriteByte('\n')

	metrics, err := r.Client.Metrics(ctx)
	if err != nil {
		return err
	}
	buf.WriteString(Metrics(metrics))
	return nil
}
