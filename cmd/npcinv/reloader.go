package main

import (
	"fmt"
	"os"

	"github.com/exapitools/npcinv/internal/config"
	"github.com/exapitools/npcinv/internal/metrics"
	"github.com/exapitools/npcinv/internal/util"
)

// configReloader applies config file edits that are safe to change while the
// daemon runs. Everything else is reported and takes effect on restart. Live
// settings are only reapplied when they differ from the last valid config.
type configReloader struct {
	path           string
	logger         *util.Logger
	metrics        *metrics.Collector
	levelOverride  string
	lastConfig     *config.Config
	lastSerialized []byte
}

func newConfigReloader(path string, logger *util.Logger, metrics *metrics.Collector, levelOverride string, cfg *config.Config, serialized []byte) *configReloader {
	return &configReloader{
		path:           path,
		logger:         logger,
		metrics:        metrics,
		levelOverride:  levelOverride,
		lastConfig:     cfg,
		lastSerialized: append([]byte(nil), serialized...),
	}
}

func (r *configReloader) Reload(reason string) error {
	r.logger.Infof("%s, reloading config", reason)
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		r.logDiff(raw)
		return err
	}
	if diff := config.DiffSerialized(r.lastSerialized, raw); diff != "" {
		r.logger.Infof("config changed; settings other than logLevel and disableMetrics apply after restart:\n%s", diff)
	}

	prev := r.lastConfig
	if r.levelOverride == "" && (prev == nil || prev.LogLevel != cfg.LogLevel) {
		r.logger.SetLevel(util.ParseLogLevel(cfg.LogLevel))
		r.logger.Infof("log level set to %q", cfg.LogLevel)
	}
	if prev == nil || prev.DisableMetrics != cfg.DisableMetrics {
		r.metrics.SetEnabled(!cfg.DisableMetrics)
		r.logger.Infof("metrics enabled=%t", !cfg.DisableMetrics)
	}

	r.lastConfig = cfg
	r.lastSerialized = append([]byte(nil), raw...)
	return nil
}

func (r *configReloader) logDiff(current []byte) {
	diff := config.DiffSerialized(r.lastSerialized, current)
	if diff == "" {
		r.logger.Warnf("config change rejected; unable to compute diff vs last valid config")
		return
	}
	r.logger.Warnf("config change rejected; diff vs last valid config:\n%s", diff)
}
