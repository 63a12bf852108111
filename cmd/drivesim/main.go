package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	if err := makeApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func makeApp() *cli.App {
	app := cli.NewApp()
	app.Name = "drivesim"
	app.Usage = "top-down driving simulation with neural network drivers"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level for brain commands: debug, info, warn, error, silent"},
	}

	configFlag := cli.StringFlag{Name: "config, c", Usage: "YAML configuration file; defaults apply when empty"}

	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "Run the simulation and stream it to browser viewers",
			Flags:  []cli.Flag{configFlag},
			Action: serveAction,
		},
		{
			Name:  "run",
			Usage: "Run the simulation headless for a number of ticks",
			Flags: []cli.Flag{
				configFlag,
				cli.IntFlag{Name: "ticks, n", Value: 1000, Usage: "Number of ticks to simulate"},
				cli.StringFlag{Name: "save", Usage: "Store the brain of this vehicle when the run ends"},
			},
			Action: runAction,
		},
		{
			Name:  "brain",
			Usage: "Operations on stored networks",
			Subcommands: []cli.Command{
				{
					Name:  "new",
					Usage: "Create a randomly initialised network",
					Flags: []cli.Flag{
						cli.StringFlag{Name: "layout", Value: "5,6,4", Usage: "Neuron counts per level, inputs first"},
						cli.Uint64Flag{Name: "seed", Usage: "Seed for the initial weights; 0 is random"},
						cli.StringFlag{Name: "out, o", Value: "brain.json", Usage: "Destination file"},
					},
					Action: brainNewAction,
				},
				{
					Name:      "inspect",
					Usage:     "Describe a stored network",
					ArgsUsage: "FILE",
					Action:    brainInspectAction,
				},
			},
		},
	}
	return app
}
