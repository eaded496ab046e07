package commands

import (
	"fmt"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/workspace"
)

// CleanCmd implements the 'clean' command. It works without compiling the task
// graph so a broken pipeline can still be cleaned.
type CleanCmd struct{}

func (c *CleanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	ws, err := workspace.NewManager(cfg.Resolve("."), cfg.Paths.Working, cfg.Paths.Dist, cfg.Paths.Preserve)
	if err != nil {
		return err
	}
	if err := ws.Clean(); err != nil {
		return err
	}
	fmt.Printf("Cleaned %s and %s\n", ws.WorkingDir(), ws.DistDir())
	return nil
}
