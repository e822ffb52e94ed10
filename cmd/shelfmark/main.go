package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "shelfmark",
		Usage: "organize browser bookmarks into category folders with an LLM",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the config file",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "path to the bookmark database",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "only log errors",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log debug details",
			},
		},
		Commands: []*cli.Command{
			organizeCommand(),
			previewCommand(),
			importCommand(),
			exportCommand(),
			historyCommand(),
			resultsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
