package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/exapitools/npcinv/internal/control"
	"github.com/exapitools/npcinv/internal/host/fixture"
	"github.com/exapitools/npcinv/internal/util"
)

const debounceWindow = 250 * time.Millisecond

func newRunCmd(opts *rootOptions) *cobra.Command {
	var hostState string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the overlay loop with rule hot reload and the control socket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), opts, hostState)
		},
	}
	cmd.Flags().StringVar(&hostState, "host-state", "", "host state dump to replay (overrides hostStatePath)")
	return cmd
}

func runDaemon(parent context.Context, opts *rootOptions, hostState string) error {
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
	eng, collector := newEngine(cfg, logger, source)

	if err := os.MkdirAll(cfg.RuleDir, 0o755); err != nil {
		return fmt.Errorf("create rule dir: %w", err)
	}
	ruleDir, err := filepath.Abs(cfg.RuleDir)
	if err != nil {
		return fmt.Errorf("resolve rule dir: %w", err)
	}
	ruleDir = filepath.Clean(ruleDir)
	ruleWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch rules: %w", err)
	}
	defer ruleWatcher.Close()
	if err := watchRuleDir(logger, ruleWatcher, ruleDir, cfg.RuleExtension, debounceWindow, func() {
		eng.RequestReload("rule directory changed")
	}); err != nil {
		return err
	}

	cfgPath, err := filepath.Abs(opts.configPath)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	cfgPath = filepath.Clean(cfgPath)
	raw, err := os.ReadFile(cfgPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config: %w", err)
	}
	reloader := newConfigReloader(cfgPath, logger, collector, opts.logLevel, cfg, raw)
	configChanged := make(chan string, 1)
	if cfgWatcher, err := fsnotify.NewWatcher(); err != nil {
		logger.Warnf("config hot reload disabled: %v", err)
	} else {
		defer cfgWatcher.Close()
		if err := cfgWatcher.Add(filepath.Dir(cfgPath)); err != nil {
			logger.Warnf("config hot reload disabled: %v", err)
		} else {
			go debounceEvents(logger, cfgWatcher, debounceWindow, func(name string) bool {
				return filepath.Clean(name) == cfgPath
			}, func() {
				select {
				case configChanged <- "config file updated":
				default:
				}
			})
		}
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	ctrlSrv, err := control.NewServer(eng, logger.With("control"), opts.socketPath)
	if err != nil {
		return fmt.Errorf("start control server: %w", err)
	}

	logger.Infof("replaying host state from %s, rules in %s", hostState, cfg.RuleDir)
	errs := make(chan error, 2)
	go func() {
		errs <- eng.Run(ctx)
	}()
	go func() {
		errs <- ctrlSrv.Serve(ctx)
	}()

	for {
		select {
		case err := <-errs:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("engine exited: %w", err)
			}
			logger.Infof("engine stopped")
			return nil
		case reason := <-configChanged:
			if err := reloader.Reload(reason); err != nil {
				logger.Errorf("config reload failed: %v", err)
			}
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				eng.RequestReload("received SIGHUP")
				if err := reloader.Reload("received SIGHUP"); err != nil {
					logger.Errorf("config reload failed: %v", err)
				}
			case os.Interrupt, syscall.SIGTERM:
				logger.Infof("received %s, shutting down", sig)
				cancel()
			}
		}
	}
}

// watchRuleDir reports debounced rule file changes to reload. The parent is
// watched as well so a removed and recreated rule dir is picked up again.
func watchRuleDir(logger *util.Logger, watcher *fsnotify.Watcher, dir, ext string, window time.Duration, reload func()) error {
	for _, path := range []string{filepath.Dir(dir), dir} {
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch rule dir: %w", err)
		}
	}
	go debounceEvents(logger, watcher, window, ruleDirFilter(dir, ext), func() {
		if err := watcher.Add(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("re-watch rule dir: %v", err)
		}
		reload()
	})
	return nil
}

// ruleDirFilter accepts rule files directly under dir and dir itself.
func ruleDirFilter(dir, ext string) func(string) bool {
	return func(name string) bool {
		name = filepath.Clean(name)
		if name == dir {
			return true
		}
		return filepath.Dir(name) == dir && strings.EqualFold(filepath.Ext(name), ext)
	}
}

// debounceEvents calls notify once the watcher has been quiet for window after
// a create, write, remove or rename of a path accepted by match.
func debounceEvents(logger *util.Logger, watcher *fsnotify.Watcher, window time.Duration, match func(string) bool, notify func()) {
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !match(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(window)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					<-timerCh
				}
				timer.Reset(window)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			notify()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("file watcher error: %v", err)
		}
	}
}
