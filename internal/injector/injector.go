//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/drivesim/internal/server"
)

func InitializeServer(path ConfigPath) (*server.Server, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}

func InitializeSimulation(path ConfigPath) (*Simulation, func(), error) {
	wire.Build(ProviderSet, wire.Struct(new(Simulation), "*"))
	return nil, nil, nil
}
