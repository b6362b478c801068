package scheduler

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisualization_GenerateGraphInfo(t *testing.T) {
	s := newTestScheduler(t, func(c *Config) { c.Name = "viz" })
	diamond(t, s)
	completeTask(t, s, "A")
	require.NoError(t, s.MarkStarted("B"))
	require.NoError(t, s.MarkFailed("B", assert.AnError))
	require.NoError(t, s.RegisterTask("E", "ghost"))

	info := NewVisualization(s).GenerateGraphInfo()

	assert.Equal(t, "viz", info.Name)
	require.Len(t, info.Nodes, 5)
	assert.Equal(t, StateCompleted, info.Nodes[0].State)
	assert.NotNil(t, info.Nodes[0].StartTime)
	assert.NotNil(t, info.Nodes[0].EndTime)
	assert.NotEmpty(t, info.Nodes[0].Duration)
	assert.Equal(t, StateFailed, info.Nodes[1].State)
	assert.Equal(t, assert.AnError.Error(), info.Nodes[1].Error)
	assert.Equal(t, StateReady, info.Nodes[2].State)

	assert.ElementsMatch(t, []EdgeInfo{
		{From: "A", To: "B"},
		{From: "A", To: "C"},
		{From: "B", To: "D"},
		{From: "C", To: "D"},
		{From: "ghost", To: "E"},
	}, info.Edges)
	assert.Equal(t, []string{"ghost"}, info.Missing)
	assert.Equal(t, 5, info.Stats.TasksScheduled)
}

func TestVisualization_ToJSON(t *testing.T) {
	s := newTestScheduler(t)
	diamond(t, s)

	data, err := NewVisualization(s).ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	nodes, ok := decoded["nodes"].([]interface{})
	require.True(t, ok)
	require.Len(t, nodes, 4)

	first := nodes[0].(map[string]interface{})
	assert.Equal(t, "A", first["id"])
	assert.Equal(t, "ready", first["state"])

	stats := decoded["stats"].(map[string]interface{})
	assert.Equal(t, float64(4), stats["tasks_scheduled"])
}

func TestVisualization_ToDOT(t *testing.T) {
	s := newTestScheduler(t)
	diamond(t, s)
	require.NoError(t, s.RegisterTask("E", "ghost"))

	dot := NewVisualization(s).ToDOT()

	assert.True(t, strings.HasPrefix(dot, "digraph Tasks {"))
	assert.Contains(t, dot, `"A" -> "B";`)
	assert.Contains(t, dot, `"C" -> "D";`)
	assert.Contains(t, dot, `fillcolor="lightcyan"`)
	assert.Contains(t, dot, `"ghost" [label="ghost\nmissing", style=dashed];`)
	assert.Contains(t, dot, "Total: 5")
	assert.True(t, strings.HasSuffix(dot, "}\n"))
}

func TestVisualization_TextSummary(t *testing.T) {
	s := newTestScheduler(t)
	diamond(t, s)
	completeTask(t, s, "A")

	summary := NewVisualization(s).TextSummary()

	assert.Contains(t, summary, "Total: 4")
	assert.Contains(t, summary, "Completed: 1")
	assert.Contains(t, summary, "Progress: 25.0%")
	assert.Contains(t, summary, "Ready (2):")
	assert.Contains(t, summary, "Pending (1):")
	assert.Contains(t, summary, "  - D\n")
}
