package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/urfave/cli/v2"

	"shelfmark/internal/exporter"
	"shelfmark/internal/importer"
	"shelfmark/internal/organizer"
	"shelfmark/internal/tui"
)

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "estimate what a run would do, without calling the classifier",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "folder id to exclude (with its descendants); repeatable",
			},
		},
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			defer a.close()
			return printPreview(c, a)
		},
	}
}

func printPreview(c *cli.Context, a *app) error {
	org, err := a.buildOrganizer(false)
	if err != nil {
		return err
	}

	preview, err := org.GeneratePreview(c.Context, c.StringSlice("exclude"))
	if err != nil {
		return err
	}

	fmt.Printf("Candidates:        %d\n", preview.TotalCandidates)
	fmt.Printf("Estimated batches: %d\n", preview.EstimatedBatches)
	if len(preview.FoldersToCreate) > 0 {
		fmt.Printf("Folders to create: %s\n", strings.Join(preview.FoldersToCreate, ", "))
	}
	return nil
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "import a browser bookmark HTML export into the store",
		ArgsUsage: "<file.html>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.Exit("Usage: shelfmark import <file.html>", 1)
			}

			a, err := setup(c)
			if err != nil {
				return err
			}
			defer a.close()

			file, err := os.Open(c.Args().First())
			if err != nil {
				return err
			}
			defer file.Close()

			folders, bookmarks, err := importer.ParseHTMLBookmarks(file)
			if err != nil {
				return fmt.Errorf("parse bookmarks: %w", err)
			}

			for _, f := range folders {
				if err := a.db.CreateFolder(c.Context, f); err != nil {
					return fmt.Errorf("import folder %q: %w", f.Title, err)
				}
			}
			for _, b := range bookmarks {
				if err := a.db.CreateBookmark(c.Context, b); err != nil {
					return fmt.Errorf("import bookmark %q: %w", b.Title, err)
				}
			}

			fmt.Printf("Imported %d folders and %d bookmarks\n", len(folders), len(bookmarks))
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "export the store to Netscape bookmark HTML",
		ArgsUsage: "[path]",
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			defer a.close()

			path := c.Args().First()
			if path == "" {
				path, err = exporter.DefaultExportPath()
				if err != nil {
					return err
				}
			}

			folders, err := a.db.Folders(c.Context)
			if err != nil {
				return err
			}
			bookmarks, err := a.db.Bookmarks(c.Context)
			if err != nil {
				return err
			}

			if err := os.WriteFile(path, []byte(exporter.ExportHTML(folders, bookmarks)), 0644); err != nil {
				return err
			}
			fmt.Printf("Exported %d bookmarks to %s\n", len(bookmarks), path)
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "manage the placement history",
		Subcommands: []*cli.Command{
			{
				Name:  "clear",
				Usage: "forget every recorded placement",
				Action: func(c *cli.Context) error {
					a, err := setup(c)
					if err != nil {
						return err
					}
					defer a.close()

					org, err := a.buildOrganizer(false)
					if err != nil {
						return err
					}
					if err := org.ClearHistory(c.Context); err != nil {
						return err
					}
					fmt.Println("History cleared")
					return nil
				},
			},
			{
				Name:  "baseline",
				Usage: "mark every bookmark as organized without moving anything",
				Action: func(c *cli.Context) error {
					a, err := setup(c)
					if err != nil {
						return err
					}
					defer a.close()

					org, err := a.buildOrganizer(false)
					if err != nil {
						return err
					}
					count, err := org.MarkAllOrganized(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Marked %d bookmarks as organized\n", count)
					return nil
				},
			},
		},
	}
}

func resultsCommand() *cli.Command {
	return &cli.Command{
		Name:  "results",
		Usage: "show the report of the last run",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "copy",
				Usage: "copy the report JSON to the clipboard",
			},
		},
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			defer a.close()

			data, err := a.db.LastReport(c.Context)
			if err != nil {
				return err
			}
			if data == nil {
				fmt.Println("No run has completed yet")
				return nil
			}

			var report organizer.Report
			if err := json.Unmarshal(data, &report); err != nil {
				return fmt.Errorf("decode last report: %w", err)
			}

			fmt.Print(tui.RenderReport(&report))

			if c.Bool("copy") {
				if err := clipboard.WriteAll(string(data)); err != nil {
					a.log.Warn("clipboard copy failed", "error", err)
				}
			}
			return nil
		},
	}
}
