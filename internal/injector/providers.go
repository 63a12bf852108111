package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/drivesim/internal/config"
	"github.com/zeusync/drivesim/internal/core/events/bus"
	"github.com/zeusync/drivesim/internal/core/observability/log"
	"github.com/zeusync/drivesim/internal/core/world"
	"github.com/zeusync/drivesim/internal/server"
	"github.com/zeusync/drivesim/internal/storage"
)

// ConfigPath names the YAML file to load. Empty means defaults.
type ConfigPath string

// Simulation is everything a headless run needs.
type Simulation struct {
	Config *config.Config
	Logger *log.Logger
	Events bus.EventBus
	Store  storage.BrainStore
	World  *world.World
}

var ProviderSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	bus.New,
	ProvideStore,
	ProvideWorld,
	server.New,
)

func ProvideConfig(path ConfigPath) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(string(path))
}

// ProvideLogger builds the process logger; the cleanup flushes it.
func ProvideLogger(cfg *config.Config) (*log.Logger, func(), error) {
	logger, err := log.NewFromConfig(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func ProvideStore(cfg *config.Config, logger log.Log) (storage.BrainStore, error) {
	return storage.NewFileStore(cfg.Storage.Dir, logger)
}

func ProvideWorld(cfg *config.Config, logger log.Log, events bus.EventBus) (*world.World, error) {
	return world.New(cfg, logger, events)
}
