package commands

import (
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/assetbuilder/internal/sequencer"
)

// PlanCmd implements the 'plan' command.
type PlanCmd struct {
	Tasks  []string `arg:"" optional:"" name:"task" help:"Goal tasks (default: default)"`
	Format string   `short:"f" help:"Output format: text, mermaid, dot, json" default:"text" enum:"text,mermaid,dot,json"`
	Output string   `short:"o" help:"Output file path (optional, prints to stdout if not specified)"`
	List   bool     `short:"l" help:"List available formats and exit"`
}

func (p *PlanCmd) Run(_ *Global, root *CLI) error {
	if p.List {
		fmt.Println("Available plan formats:")
		fmt.Println()
		for _, format := range sequencer.SupportedFormats() {
			fmt.Printf("  %-10s %s\n", format, sequencer.FormatDescription(format))
		}
		return nil
	}

	s, err := openSession(root, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	goals := p.Tasks
	if len(goals) == 0 {
		goals = []string{"default"}
	}
	plan, err := s.service.Plan(goals...)
	if err != nil {
		return err
	}
	output, err := sequencer.Visualize(plan, sequencer.VisualizationFormat(p.Format))
	if err != nil {
		return fmt.Errorf("failed to visualize plan: %w", err)
	}

	if p.Output != "" {
		if err := os.WriteFile(p.Output, []byte(output), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		slog.Info("Plan written", "file", p.Output, "format", p.Format)
		return nil
	}
	fmt.Print(output)
	return nil
}
