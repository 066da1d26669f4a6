package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exapitools/npcinv/internal/control/client"
	"github.com/exapitools/npcinv/internal/engine"
	"github.com/exapitools/npcinv/internal/filterset"
	"github.com/exapitools/npcinv/internal/itemfilter"
	"github.com/exapitools/npcinv/internal/ui/report"
)

func newRulesCmd(opts *rootOptions) *cobra.Command {
	var (
		enable  []string
		disable []string
		notify  bool
	)
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Rescan the rule directory and list or toggle rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			cat := newCatalog(cfg, logger)
			if _, err := cat.Refresh(); err != nil {
				return err
			}
			for _, name := range enable {
				if err := cat.SetEnabled(name, true); err != nil {
					return err
				}
			}
			for _, name := range disable {
				if err := cat.SetEnabled(name, false); err != nil {
					return err
				}
			}

			set, failures := filterset.Build(cat.Enabled(), itemfilter.Loader{}, logger.With("filterset"))
			status := engine.RulesStatus{Entries: cat.Entries(), Loaded: set.Rules()}
			for _, f := range failures {
				status.Failures = append(status.Failures, f.Error())
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Rules(status))

			changed := len(enable) > 0 || len(disable) > 0
			if changed && notify {
				if err := requestReload(cmd.Context(), opts.socketPath, "rules toggled from cli"); err != nil {
					logger.Warnf("daemon not notified: %v", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&enable, "enable", nil, "enable the named rule (repeatable)")
	cmd.Flags().StringSliceVar(&disable, "disable", nil, "disable the named rule (repeatable)")
	cmd.Flags().BoolVar(&notify, "notify", true, "ask a running daemon to reload after toggling")
	return cmd
}

func requestReload(ctx context.Context, socket, reason string) error {
	cli, err := client.New(socket)
	if err != nil {
		return err
	}
	return cli.Reload(ctx, reason)
}
