package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/exapitools/npcinv/internal/config"
	"github.com/exapitools/npcinv/internal/metrics"
	"github.com/exapitools/npcinv/internal/util"
)

func TestReloadLogsDiffOnFailureAndKeepsPreviousConfig(t *testing.T) {
	initial := "ruleExtension: .ifl\nlogLevel: info\n"
	bad := "ruleExtension: ifl\nlogLevel: info\n"

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(initial), 0o600); err != nil {
		t.Fatalf("write initial config: %v", err)
	}
	cfg, err := config.Parse([]byte(initial))
	if err != nil {
		t.Fatalf("parse initial config: %v", err)
	}

	var logs bytes.Buffer
	logger := util.NewLoggerWithWriter(util.LevelInfo, &logs)
	collector := metrics.NewCollector(true)
	reloader := newConfigReloader(path, logger, collector, "", cfg, []byte(initial))

	if err := os.WriteFile(path, []byte(bad), 0o600); err != nil {
		t.Fatalf("write bad config: %v", err)
	}
	err = reloader.Reload("test reason")
	if err == nil || !strings.Contains(err.Error(), "ruleExtension") {
		t.Fatalf("expected ruleExtension error, got %v", err)
	}
	if !strings.Contains(logs.String(), "config change rejected; diff vs last valid config") {
		t.Fatalf("expected diff log, got %s", logs.String())
	}
	if reloader.lastConfig != cfg {
		t.Fatalf("failed reload must keep the previous config")
	}
	if !collector.Enabled() {
		t.Fatalf("failed reload must not touch metrics")
	}
}

func TestReloadAppliesLiveSettings(t *testing.T) {
	initial := "logLevel: info\n"
	updated := "logLevel: debug\ndisableMetrics: true\n"

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Parse([]byte(initial))
	if err != nil {
		t.Fatalf("parse initial config: %v", err)
	}

	var logs bytes.Buffer
	logger := util.NewLoggerWithWriter(util.LevelInfo, &logs)
	collector := metrics.NewCollector(true)
	reloader := newConfigReloader(path, logger, collector, "", cfg, []byte(initial))
	if err := reloader.Reload("test"); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if logger.Level() != util.LevelDebug {
		t.Fatalf("expected debug level, got %v", logger.Level())
	}
	if collector.Enabled() {
		t.Fatalf("expected metrics to be disabled")
	}
	if !strings.Contains(logs.String(), "config changed") {
		t.Fatalf("expected change log, got %s", logs.String())
	}

	pinned := util.NewLoggerWithWriter(util.LevelWarn, &logs)
	reloader = newConfigReloader(path, pinned, collector, "warn", cfg, []byte(initial))
	if err := reloader.Reload("test"); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if pinned.Level() != util.LevelWarn {
		t.Fatalf("--log-level must win over the config file, got %v", pinned.Level())
	}
}

func TestReloadOnlyReappliesChangedLiveSettings(t *testing.T) {
	initial := "logLevel: info\n"
	updated := "logLevel: info\nfilterTest: \"name: Mirror\"\n"

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Parse([]byte(initial))
	if err != nil {
		t.Fatalf("parse initial config: %v", err)
	}

	var logs bytes.Buffer
	logger := util.NewLoggerWithWriter(util.LevelInfo, &logs)
	collector := metrics.NewCollector(true)
	collector.RecordReload()
	reloader := newConfigReloader(path, logger, collector, "", cfg, []byte(initial))
	logger.SetLevel(util.LevelDebug)

	if err := reloader.Reload("test"); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if logger.Level() != util.LevelDebug {
		t.Fatalf("unchanged logLevel must not reset the level, got %v", logger.Level())
	}
	if got := collector.Snapshot().Totals.RuleReloads; got != 1 {
		t.Fatalf("unchanged disableMetrics must keep counters, got %d reloads", got)
	}
	if reloader.lastConfig.FilterTest != "name: Mirror" {
		t.Fatalf("expected the accepted config to be remembered, got %+v", reloader.lastConfig)
	}
	if strings.Contains(logs.String(), "log level set") {
		t.Fatalf("unexpected level change log: %s", logs.String())
	}
}
