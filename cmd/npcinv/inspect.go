package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exapitools/npcinv/internal/host/fixture"
	"github.com/exapitools/npcinv/internal/state"
	"github.com/exapitools/npcinv/internal/ui/report"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	var (
		hostState string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Render one frame for a host state dump and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if hostState == "" {
				hostState = cfg.HostStatePath
			}
			if hostState == "" {
				return errors.New("no host state source: set hostStatePath or pass --host-state")
			}
			source := fixture.NewSource(hostState, logger.With("host"))
			eng, _ := newEngine(cfg, logger, source)
			if err := eng.Reload("inspect"); err != nil {
				return err
			}
			live, err := source.Capture(cmd.Context())
			if err != nil {
				return err
			}
			if err := eng.Tick(cmd.Context()); err != nil {
				return err
			}
			frame := eng.Render()

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(frame)
			}
			fmt.Fprint(out, report.Tree(surfaceLabel(live), eng.Snapshot(), frame))
			return nil
		},
	}
	cmd.Flags().StringVar(&hostState, "host-state", "", "host state dump to inspect (overrides hostStatePath)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the frame as JSON")
	return cmd
}

func surfaceLabel(live *state.Live) string {
	area := live.Area.Name
	if area == "" {
		area = "(unknown area)"
	}
	_, kind := state.ActiveSurface(live)
	if kind == state.SurfaceNone {
		return area
	}
	return fmt.Sprintf("%s, %s trade window", area, kind)
}
