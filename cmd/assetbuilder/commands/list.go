package commands

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

// ListCmd implements the 'list' command.
type ListCmd struct{}

func (l *ListCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	width := 0
	for _, t := range cfg.Tasks {
		width = max(width, len(t.Name))
	}
	for _, t := range cfg.Tasks {
		line := fmt.Sprintf("%-*s", width, t.Name)
		if t.Description != "" {
			line += "  " + t.Description
		}
		fmt.Println(line)
		if len(t.Deps) > 0 {
			fmt.Printf("%*s  deps:  %s\n", width, "", strings.Join(t.Deps, ", "))
		}
		if len(t.After) > 0 {
			fmt.Printf("%*s  after: %s\n", width, "", strings.Join(t.After, ", "))
		}
	}
	return nil
}
