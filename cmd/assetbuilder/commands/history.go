package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of runs to show" default:"10"`
	ID    string `arg:"" optional:"" help:"Show the tasks of one run"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return ferrors.ConfigError("history.path is not configured").Build()
	}
	store, err := history.NewSQLiteStore(cfg.Resolve(cfg.History.Path))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	if h.ID != "" {
		run, err := store.Get(ctx, h.ID)
		if err != nil {
			return err
		}
		printRecord(run)
		for _, t := range run.Tasks {
			line := fmt.Sprintf("  [%d] %-20s %-10s %s", t.Stage, t.Name, t.Status, t.Duration.Round(time.Millisecond))
			if t.Error != "" {
				line += "  " + t.Error
			}
			fmt.Println(line)
		}
		return nil
	}

	runs, err := store.Recent(ctx, h.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}
	for _, run := range runs {
		printRecord(run)
	}
	return nil
}

func printRecord(run history.RunRecord) {
	fmt.Printf("%s  %-8s %-9s %-14s %8s  %s\n",
		run.ID,
		run.Status,
		run.Trigger,
		humanize.Time(run.StartedAt),
		run.Duration.Round(time.Millisecond),
		strings.Join(run.Goals, ","))
}
