package commands

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/build"
	"git.home.luguber.info/inful/assetbuilder/internal/sequencer"
)

// TriggerCLI labels runs started from the command line.
const TriggerCLI = "cli"

// RunCmd implements the 'run' command.
type RunCmd struct {
	Tasks   []string      `arg:"" optional:"" name:"task" help:"Tasks to run (default: default)"`
	Jobs    int           `short:"j" help:"Maximum tasks running concurrently within a stage (0 uses the configured value)"`
	Timeout time.Duration `help:"Per-task timeout for tasks without their own"`
	History bool          `help:"Record the run in the history database" default:"true" negatable:""`
}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(root, sessionOptions{jobs: r.Jobs, timeout: r.Timeout, withHistory: r.History})
	if err != nil {
		return err
	}
	defer s.Close()

	goals := r.Tasks
	if len(goals) == 0 {
		goals = []string{"default"}
	}
	res, err := s.service.Run(ctx, build.BuildRequest{Goals: goals, Trigger: TriggerCLI})
	if res != nil {
		printRunSummary(res.Run)
	}
	return err
}

func printRunSummary(run *sequencer.RunResult) {
	if run == nil {
		return
	}
	fmt.Printf("Run %s: %s in %s\n", run.ID, run.Outcome(), run.Duration.Round(time.Millisecond))
	for _, t := range run.Tasks {
		line := fmt.Sprintf("  [%d] %-20s %-10s", t.Stage, t.Name, t.Status)
		if t.Completed() {
			line += " " + t.Duration.Round(time.Millisecond).String()
		}
		if t.Err != nil {
			line += "  " + t.Err.Error()
		}
		fmt.Println(line)
	}
}
