package main

import (
	"fmt"
	"time"

	"github.com/newthinker/stockanalyzer/internal/app"
	"github.com/newthinker/stockanalyzer/internal/collector"
	"github.com/newthinker/stockanalyzer/internal/collector/alpaca"
	"github.com/newthinker/stockanalyzer/internal/collector/alphavantage"
	"github.com/newthinker/stockanalyzer/internal/collector/yahoo"
	"github.com/newthinker/stockanalyzer/internal/config"
	"github.com/newthinker/stockanalyzer/internal/history"
	"github.com/newthinker/stockanalyzer/internal/logger"
	"github.com/newthinker/stockanalyzer/internal/metrics"
	"github.com/newthinker/stockanalyzer/internal/notifier"
	"github.com/newthinker/stockanalyzer/internal/notifier/webhook"
	"github.com/newthinker/stockanalyzer/internal/storage"
	"github.com/newthinker/stockanalyzer/internal/storage/archive"
	"github.com/newthinker/stockanalyzer/internal/storage/memory"
	"github.com/newthinker/stockanalyzer/internal/storage/sqlite"
	"go.uber.org/zap"
)

// store is what the services need from a storage backend.
type store interface {
	storage.PriceStore
	storage.ResultStore
	Close() error
}

// services is the wired application shared by all commands.
type services struct {
	cfg     *config.Config
	log     *zap.Logger
	store   store
	metrics *metrics.Registry // nil when disabled
	history *history.Service
	app     *app.App
}

// setup loads configuration and wires storage, collectors and the app.
func setup() (*services, error) {
	log := logger.Must(debug)

	cfg, fromFile, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if !fromFile {
		log.Warn("no config file specified, using defaults")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	st, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	arch, err := openArchive(cfg.Storage.Archive)
	if err != nil {
		st.Close()
		return nil, err
	}

	s := &services{cfg: cfg, log: log, store: st}

	histOpts := []history.Option{
		history.WithInterval(cfg.Import.Interval),
		history.WithLogger(log),
	}
	var recorder app.Recorder
	if cfg.Metrics.Enabled {
		s.metrics = metrics.NewRegistry()
		histOpts = append(histOpts, history.WithRecorder(s.metrics))
		recorder = s.metrics
	}

	s.history = history.New(st, buildCollectors(cfg.Collectors, log), cfg.Collectors.Default, histOpts...)
	s.app = app.New(s.history, st, arch, recorder, log)
	s.app.SetNotifier(buildNotifiers(cfg.Notifier, log))
	return s, nil
}

func (s *services) Close() {
	if err := s.store.Close(); err != nil {
		s.log.Warn("closing store", zap.Error(err))
	}
	_ = s.log.Sync()
}

func openStore(cfg config.StorageConfig) (store, error) {
	if cfg.Database == "" {
		return memory.New(cfg.MaxResults), nil
	}
	st, err := sqlite.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return st, nil
}

// openArchive returns nil when archiving is off.
func openArchive(cfg config.ArchiveConfig) (*archive.Archiver, error) {
	switch cfg.Type {
	case "localfs":
		fs, err := archive.NewLocalFS(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("creating local archive: %w", err)
		}
		return archive.NewArchiver(fs), nil
	case "s3":
		s3, err := archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("creating s3 archive: %w", err)
		}
		return archive.NewArchiver(s3), nil
	}
	return nil, nil
}

// buildCollectors registers every collector that initializes. A collector
// missing credentials is skipped with a warning.
func buildCollectors(cfg config.CollectorsConfig, log *zap.Logger) *collector.Registry {
	registry := collector.NewRegistry()
	timeout := 30 * time.Second

	register := func(c collector.Collector, ccfg collector.Config) {
		ccfg.Timeout = timeout
		if err := c.Init(ccfg); err != nil {
			log.Warn("collector disabled", zap.String("collector", c.Name()), zap.Error(err))
			return
		}
		registry.Register(c)
	}

	register(alphavantage.New(cfg.AlphaVantage.APIKey), collector.Config{
		APIKey:  cfg.AlphaVantage.APIKey,
		BaseURL: cfg.AlphaVantage.BaseURL,
	})
	if cfg.Yahoo.Enabled {
		register(yahoo.New(), collector.Config{BaseURL: cfg.Yahoo.BaseURL})
	}
	if cfg.Alpaca.APIKey != "" {
		register(alpaca.New(), collector.Config{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.APISecret,
			BaseURL:   cfg.Alpaca.BaseURL,
		})
	}

	log.Debug("collectors registered", zap.Strings("collectors", registry.Names()))
	return registry
}

// buildNotifiers returns nil when no notifier is configured.
func buildNotifiers(cfg config.NotifierConfig, log *zap.Logger) *notifier.Registry {
	if cfg.Webhook.URL == "" {
		return nil
	}
	hook := webhook.New("", nil)
	if err := hook.Init(notifier.Config{URL: cfg.Webhook.URL, Headers: cfg.Webhook.Headers}); err != nil {
		log.Warn("notifier disabled", zap.String("notifier", hook.Name()), zap.Error(err))
		return nil
	}

	registry := notifier.NewRegistry()
	if err := registry.Register(hook); err != nil {
		log.Warn("notifier disabled", zap.String("notifier", hook.Name()), zap.Error(err))
		return nil
	}
	return registry
}
