package scheduler

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Visualization renders the task graph of a scheduler
type Visualization struct {
	scheduler *Scheduler
}

// NewVisualization creates a new visualization helper
func NewVisualization(s *Scheduler) *Visualization {
	return &Visualization{scheduler: s}
}

// NodeInfo contains information about a task for visualization
type NodeInfo struct {
	ID           string     `json:"id"`
	State        State      `json:"state"`
	Dependencies []string   `json:"dependencies,omitempty"`
	StartTime    *time.Time `json:"startTime,omitempty"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Duration     string     `json:"duration,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// EdgeInfo is a dependency edge; From must finish before To can start
type EdgeInfo struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GraphInfo contains the full task graph for visualization
type GraphInfo struct {
	Name    string     `json:"name"`
	Nodes   []NodeInfo `json:"nodes"`
	Edges   []EdgeInfo `json:"edges"`
	Missing []string   `json:"missing,omitempty"`
	Stats   Stats      `json:"stats"`
}

// GenerateGraphInfo builds the graph in registration order
func (v *Visualization) GenerateGraphInfo() *GraphInfo {
	tasks := v.scheduler.Tasks()

	registered := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		registered[task.ID] = true
	}

	info := &GraphInfo{
		Name:  v.scheduler.Name(),
		Nodes: make([]NodeInfo, 0, len(tasks)),
		Edges: []EdgeInfo{},
		Stats: v.scheduler.GetStats(),
	}

	missing := make(map[string]bool)
	for _, task := range tasks {
		node := NodeInfo{
			ID:           task.ID,
			State:        task.State,
			Dependencies: task.Dependencies,
		}
		if !task.StartedAt.IsZero() {
			started := task.StartedAt
			node.StartTime = &started
			if task.FinishedAt.IsZero() {
				node.Duration = time.Since(started).Round(time.Millisecond).String() + " (running)"
			}
		}
		if !task.FinishedAt.IsZero() {
			finished := task.FinishedAt
			node.EndTime = &finished
			node.Duration = task.Duration().String()
		}
		if task.Err != nil {
			node.Error = task.Err.Error()
		}
		info.Nodes = append(info.Nodes, node)

		for _, dep := range task.Dependencies {
			info.Edges = append(info.Edges, EdgeInfo{From: dep, To: task.ID})
			if !registered[dep] {
				missing[dep] = true
			}
		}
	}

	for id := range missing {
		info.Missing = append(info.Missing, id)
	}
	sort.Strings(info.Missing)

	return info
}

// ToJSON renders the graph as indented JSON
func (v *Visualization) ToJSON() ([]byte, error) {
	return json.MarshalIndent(v.GenerateGraphInfo(), "", "  ")
}

// ToDOT renders the graph in Graphviz DOT format, coloured by state
func (v *Visualization) ToDOT() string {
	info := v.GenerateGraphInfo()

	var sb strings.Builder
	sb.WriteString("digraph Tasks {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=filled];\n")
	sb.WriteString(fmt.Sprintf("  label=%q;\n", "Scheduler "+info.Name))
	sb.WriteString("  labelloc=\"t\";\n\n")

	for _, node := range info.Nodes {
		label := fmt.Sprintf("%s\\n%s", node.ID, node.State)
		if node.Duration != "" {
			label += fmt.Sprintf("\\n%s", node.Duration)
		}
		if node.Error != "" {
			errorMsg := node.Error
			if len(errorMsg) > 50 {
				errorMsg = errorMsg[:47] + "..."
			}
			label += fmt.Sprintf("\\nError: %s", strings.ReplaceAll(errorMsg, "\"", "'"))
		}
		sb.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", fillcolor=\"%s\"];\n",
			node.ID, label, stateColor(node.State)))
	}

	for _, id := range info.Missing {
		sb.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\\nmissing\", style=dashed];\n", id, id))
	}

	if len(info.Edges) > 0 {
		sb.WriteString("\n")
	}
	for _, edge := range info.Edges {
		sb.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\";\n", edge.From, edge.To))
	}

	sb.WriteString("\n  // Statistics\n")
	sb.WriteString(fmt.Sprintf("  \"stats\" [label=\"Stats\\nTotal: %d\\nCompleted: %d\\nFailed: %d\\nPending: %d\", shape=note, fillcolor=\"lightyellow\"];\n",
		info.Stats.TasksScheduled,
		info.Stats.TasksCompleted,
		info.Stats.TasksFailed,
		info.Stats.TasksPending))
	sb.WriteString("}\n")

	return sb.String()
}

// TextSummary renders a human-readable summary grouped by state
func (v *Visualization) TextSummary() string {
	info := v.GenerateGraphInfo()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("=== Scheduler %s ===\n\n", info.Name))
	sb.WriteString(fmt.Sprintf("  Total: %d\n", info.Stats.TasksScheduled))
	sb.WriteString(fmt.Sprintf("  Completed: %d\n", info.Stats.TasksCompleted))
	sb.WriteString(fmt.Sprintf("  Failed: %d\n", info.Stats.TasksFailed))
	sb.WriteString(fmt.Sprintf("  Pending: %d (ready %d, running %d)\n",
		info.Stats.TasksPending, info.Stats.TasksReady, info.Stats.TasksRunning))
	if info.Stats.TasksScheduled > 0 {
		sb.WriteString(fmt.Sprintf("  Progress: %.1f%%\n", info.Stats.Progress()*100))
	}

	groups := []State{StateFailed, StateRunning, StateReady, StatePending, StateCompleted}
	for _, state := range groups {
		var nodes []NodeInfo
		for _, node := range info.Nodes {
			if node.State == state {
				nodes = append(nodes, node)
			}
		}
		if len(nodes) == 0 {
			continue
		}

		sb.WriteString(fmt.Sprintf("\n%s (%d):\n", strings.ToUpper(state.String()[:1])+state.String()[1:], len(nodes)))
		for _, node := range nodes {
			sb.WriteString("  - " + node.ID)
			if node.Duration != "" {
				sb.WriteString(" - " + node.Duration)
			}
			if node.Error != "" {
				sb.WriteString(" - Error: " + node.Error)
			}
			sb.WriteString("\n")
		}
	}

	if len(info.Missing) > 0 {
		sb.WriteString(fmt.Sprintf("\nMissing dependencies: %s\n", strings.Join(info.Missing, ", ")))
	}

	return sb.String()
}

func stateColor(state State) string {
	switch state {
	case StateReady:
		return "lightcyan"
	case StateRunning:
		return "lightblue"
	case StateCompleted:
		return "lightgreen"
	case StateFailed:
		return "salmon"
	default:
		return "lightgrey"
	}
}
