package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli"

	"github.com/zeusync/drivesim/internal/core/neural"
	"github.com/zeusync/drivesim/internal/core/observability/log"
	"github.com/zeusync/drivesim/internal/injector"
	"github.com/zeusync/drivesim/internal/storage"
)

func serveAction(c *cli.Context) error {
	srv, cleanup, err := injector.InitializeServer(injector.ConfigPath(c.String("config")))
	if err != nil {
		return err
	}
	defer cleanup()
	defer func() { _ = srv.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func runAction(c *cli.Context) error {
	ticks := c.Int("ticks")
	if ticks < 0 {
		return fmt.Errorf("--ticks must not be negative, got %d", ticks)
	}

	sim, cleanup, err := injector.InitializeSimulation(injector.ConfigPath(c.String("config")))
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := sim.Logger.With(log.String("component", "run"))
	brain := sim.Config.Storage.Brain
	snap, err := sim.Store.Load(ctx, brain)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return err
	default:
		n, err := sim.World.LoadBrain(snap)
		if err != nil {
			return fmt.Errorf("load brain %q: %w", brain, err)
		}
		logger.Info("Brain loaded", log.String("brain", brain), log.Int("vehicles", n))
	}

	logger.Info("Run started", log.Int("ticks", ticks))
	for i := 0; i < ticks && ctx.Err() == nil; i++ {
		if err := sim.World.Step(); err != nil {
			return fmt.Errorf("tick %d: %w", sim.World.Tick(), err)
		}
	}
	stats := sim.World.Stats()
	logger.Info("Run finished",
		log.Uint64("tick", stats.Tick),
		log.Int("fleet", stats.Fleet),
		log.Int("damaged", stats.Damaged))

	if id := c.String("save"); id != "" {
		v, err := sim.World.Vehicle(id)
		if err != nil {
			return err
		}
		if v.Network() == nil {
			return fmt.Errorf("vehicle %s has no network", id)
		}
		if err := sim.Store.Save(ctx, brain, v.Network().Snapshot()); err != nil {
			return err
		}
		logger.Info("Brain saved", log.String("brain", brain), log.String("vehicle", id))
	}

	out, err := json.MarshalIndent(struct {
		Stats    any `json:"stats"`
		Vehicles any `json:"vehicles"`
	}{stats, sim.World.States()}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(out))
	return err
}

func brainNewAction(c *cli.Context) error {
	layout, err := parseLayout(c.String("layout"))
	if err != nil {
		return err
	}
	var opts []neural.Option
	if seed := c.Uint64("seed"); seed != 0 {
		opts = append(opts, neural.WithRand(rand.New(rand.NewPCG(seed, seed))))
	}
	net, err := neural.New(layout, opts...)
	if err != nil {
		return err
	}

	store, name, err := openBrain(c, c.String("out"))
	if err != nil {
		return err
	}
	if err = store.Save(context.Background(), name, net.Snapshot()); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "%s layout=%v fingerprint=%016x\n", store.Path(name), net.Layout(), net.Fingerprint())
	return err
}

func brainInspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected one FILE argument, got %d", c.NArg())
	}
	store, name, err := openBrain(c, c.Args().First())
	if err != nil {
		return err
	}
	snap, err := store.Load(context.Background(), name)
	if err != nil {
		return err
	}
	net, err := neural.FromSnapshot(snap)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "file:        %s\n", store.Path(name))
	fmt.Fprintf(w, "layout:      %v\n", net.Layout())
	fmt.Fprintf(w, "fingerprint: %016x\n", net.Fingerprint())
	for i, l := range net.Layers() {
		lo, hi := weightRange(l.Weights())
		fmt.Fprintf(w, "level %d:     %d -> %d, weights [%.3f, %.3f]\n", i, l.InputCount(), l.OutputCount(), lo, hi)
	}
	return nil
}

// openBrain maps a file path onto a FileStore rooted at its directory.
func openBrain(c *cli.Context, path string) (*storage.FileStore, string, error) {
	logger, err := log.NewFromConfig(log.Config{Level: c.GlobalString("log-level"), Encoding: "console"})
	if err != nil {
		return nil, "", err
	}
	store, err := storage.NewFileStore(filepath.Dir(path), logger)
	if err != nil {
		return nil, "", err
	}
	return store, strings.TrimSuffix(filepath.Base(path), ".json"), nil
}

// parseLayout reads "5,6,4".
func parseLayout(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	layout := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("layout %q: %w", s, err)
		}
		layout = append(layout, n)
	}
	return layout, nil
}

func weightRange(weights [][]float64) (lo, hi float64) {
	first := true
	for _, row := range weights {
		for _, v := range row {
			if first || v < lo {
				lo = v
			}
			if first || v > hi {
				hi = v
			}
			first = false
		}
	}
	return lo, hi
}
