package sequencer

import (
	"encoding/json"
	"fmt"
	"strings"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// VisualizationFormat represents the output format for plan visualization.
type VisualizationFormat string

const (
	FormatText    VisualizationFormat = "text"
	FormatMermaid VisualizationFormat = "mermaid"
	FormatDOT     VisualizationFormat = "dot"
	FormatJSON    VisualizationFormat = "json"
)

// Visualize renders plan in the requested format.
func Visualize(plan *ExecutionPlan, format VisualizationFormat) (string, error) {
	if plan == nil {
		plan = &ExecutionPlan{}
	}
	switch format {
	case FormatText, "":
		return visualizeText(plan), nil
	case FormatMermaid:
		return visualizeMermaid(plan), nil
	case FormatDOT:
		return visualizeDOT(plan), nil
	case FormatJSON:
		return visualizeJSON(plan)
	default:
		return "", ferrors.ValidationError(fmt.Sprintf("unsupported format: %s", format)).
			WithContext("format", string(format)).
			Build()
	}
}

func visualizeText(plan *ExecutionPlan) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Execution plan for %s\n", strings.Join(plan.Goals, ", "))
	sb.WriteString(strings.Repeat("=", 19+len(strings.Join(plan.Goals, ", "))))
	sb.WriteString("\n\n")

	for i, stage := range plan.Stages {
		fmt.Fprintf(&sb, "┌─ Stage %d\n", i)
		for j, name := range stage {
			prefix := "├──"
			connector := "│   "
			if j == len(stage)-1 {
				prefix = "└──"
				connector = "    "
			}
			fmt.Fprintf(&sb, "│ %s [%s]\n", prefix, name)
			if waits := plan.Edges[name]; len(waits) > 0 {
				fmt.Fprintf(&sb, "│ %s   ⤷ after: %s\n", connector, strings.Join(waits, ", "))
			}
		}
		if i < len(plan.Stages)-1 {
			sb.WriteString("↓\n")
		}
	}

	fmt.Fprintf(&sb, "\nTotal: %d tasks across %d stages\n", plan.Len(), len(plan.Stages))
	return sb.String()
}

func mermaidID(name string) string {
	r := strings.NewReplacer("_", "", "-", "", ":", "_", ".", "_", " ", "_")
	return r.Replace(name)
}

func visualizeMermaid(plan *ExecutionPlan) string {
	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	sb.WriteString("graph TD\n")
	for i, stage := range plan.Stages {
		fmt.Fprintf(&sb, "    subgraph stage%d[\"Stage %d\"]\n", i, i)
		for _, name := range stage {
			fmt.Fprintf(&sb, "        %s[\"%s\"]\n", mermaidID(name), name)
		}
		sb.WriteString("    end\n")
	}
	sb.WriteString("\n")
	for _, name := range plan.Tasks() {
		for _, dep := range plan.Edges[name] {
			fmt.Fprintf(&sb, "    %s --> %s\n", mermaidID(dep), mermaidID(name))
		}
	}
	sb.WriteString("```\n")
	return sb.String()
}

func visualizeDOT(plan *ExecutionPlan) string {
	var sb strings.Builder

	sb.WriteString("digraph ExecutionPlan {\n")
	sb.WriteString("    rankdir=TB;\n")
	sb.WriteString("    node [shape=box, style=rounded];\n\n")
	for i, stage := range plan.Stages {
		fmt.Fprintf(&sb, "    subgraph cluster_%d {\n", i)
		fmt.Fprintf(&sb, "        label=\"Stage %d\";\n", i)
		sb.WriteString("        style=filled;\n")
		sb.WriteString("        color=lightgrey;\n\n")
		for _, name := range stage {
			fmt.Fprintf(&sb, "        %q;\n", name)
		}
		sb.WriteString("    }\n\n")
	}
	for _, name := range plan.Tasks() {
		for _, dep := range plan.Edges[name] {
			fmt.Fprintf(&sb, "    %q -> %q;\n", dep, name)
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

type jsonPlan struct {
	Goals       []string   `json:"goals"`
	Stages      [][]string `json:"stages"`
	Tasks       []jsonTask `json:"tasks"`
	TotalTasks  int        `json:"totalTasks"`
	TotalStages int        `json:"totalStages"`
}

type jsonTask struct {
	Name  string   `json:"name"`
	Stage int      `json:"stage"`
	After []string `json:"after"`
}

func visualizeJSON(plan *ExecutionPlan) (string, error) {
	out := jsonPlan{
		Goals:       plan.Goals,
		Stages:      plan.Stages,
		TotalTasks:  plan.Len(),
		TotalStages: len(plan.Stages),
	}
	if out.Goals == nil {
		out.Goals = []string{}
	}
	if out.Stages == nil {
		out.Stages = [][]string{}
	}
	out.Tasks = []jsonTask{}
	for i, stage := range plan.Stages {
		for _, name := range stage {
			after := plan.Edges[name]
			if after == nil {
				after = []string{}
			}
			out.Tasks = append(out.Tasks, jsonTask{Name: name, Stage: i, After: after})
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", ferrors.InternalError("encode plan").WithCause(err).Build()
	}
	return string(data) + "\n", nil
}

// SupportedFormats returns the visualization formats accepted by Visualize.
func SupportedFormats() []VisualizationFormat {
	return []VisualizationFormat{FormatText, FormatMermaid, FormatDOT, FormatJSON}
}

// FormatDescription returns a description of a visualization format.
func FormatDescription(format VisualizationFormat) string {
	descriptions := map[VisualizationFormat]string{
		FormatText:    "Human-readable text with ASCII art",
		FormatMermaid: "Mermaid diagram (for GitHub, GitLab, etc.)",
		FormatDOT:     "Graphviz DOT format (render with `dot -Tpng plan.dot -o plan.png`)",
		FormatJSON:    "Structured JSON representation",
	}
	return descriptions[format]
}
