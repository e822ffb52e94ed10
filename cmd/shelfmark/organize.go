package main

import (
	"encoding/json"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/urfave/cli/v2"

	"shelfmark/internal/config"
	"shelfmark/internal/organizer"
	"shelfmark/internal/tui"
)

func organizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "organize",
		Usage: "classify bookmarks and move them into category folders",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "folder id to exclude (with its descendants); repeatable",
			},
			&cli.StringSliceFlag{
				Name:  "exclude-pattern",
				Usage: "folder title pattern to exclude (* and ? wildcards); repeatable",
			},
			&cli.StringSliceFlag{
				Name:  "folders",
				Usage: "only organize these folder ids (and their descendants); repeatable",
			},
			&cli.StringFlag{
				Name:  "categories-file",
				Usage: "YAML file with the category list, overrides the config",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "show what would happen, no classification or mutation",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "line-based progress output instead of the live view",
			},
			&cli.BoolFlag{
				Name:  "copy",
				Usage: "copy the report JSON to the clipboard",
			},
		},
		Action: organizeAction,
	}
}

func organizeAction(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()

	if file := c.String("categories-file"); file != "" {
		categories, err := config.LoadCategoriesFile(file)
		if err != nil {
			return err
		}
		a.cfg.Categories = categories
	}
	a.cfg.ExcludedFolderPatterns = append(a.cfg.ExcludedFolderPatterns, c.StringSlice("exclude-pattern")...)

	if c.Bool("dry-run") {
		return printPreview(c, a)
	}

	org, err := a.buildOrganizer(true)
	if err != nil {
		return err
	}

	run := func(onProgress organizer.ProgressFunc) (*organizer.Report, error) {
		if folders := c.StringSlice("folders"); len(folders) > 0 {
			return org.ExecuteForFolders(c.Context, folders, onProgress)
		}
		return org.Execute(c.Context, c.StringSlice("exclude"), onProgress)
	}

	var report *organizer.Report
	if c.Bool("plain") || c.Bool("quiet") {
		report, err = run(plainProgress(a))
	} else {
		report, err = tui.RunWithProgress(run)
	}
	if err != nil {
		return err
	}

	fmt.Print(tui.RenderReport(report))

	if c.Bool("copy") {
		if err := copyReport(report); err != nil {
			a.log.Warn("clipboard copy failed", "error", err)
		}
	}

	if report.Outcome == organizer.OutcomeFailed {
		return cli.Exit("", 1)
	}
	return nil
}

func plainProgress(a *app) organizer.ProgressFunc {
	return func(p organizer.Progress) {
		switch p.Phase {
		case organizer.PhaseClassifying:
			a.log.Info("classifying", "batch", p.Batch, "total", p.TotalBatches)
		case organizer.PhaseMutating:
			a.log.Info("moving", "moved", p.Moved, "total", p.TotalMoves)
		default:
			a.log.Info(string(p.Phase), "detail", p.Message)
		}
	}
}

func copyReport(report *organizer.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return clipboard.WriteAll(string(data))
}
