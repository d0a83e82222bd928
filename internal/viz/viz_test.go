package viz

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/sim"
)

func testEnsemble() *dynamo.Ensemble {
	ens := dynamo.NewEnsemble(dynamo.Species{Tag: "Ti-47", Count: 4}, 2)
	ens.Pos[dynamo.X][0] = 1e-3
	ens.Pos[dynamo.Y][0] = -1e-3
	ens.Membership[1] = dynamo.Lost
	ens.Membership[2] = ens.Detected()
	return ens
}

func TestCanvasCrossSection(t *testing.T) {
	c := NewCanvas(4, 2)
	c.CrossSection(nil, nil, 1)
	assert.Zero(t, c.Grid[1][2]&0x1, "centre should be empty without particles")
	assert.NotZero(t, c.Grid[0][0]&0x1, "frame corner")

	c.CrossSection([]float64{0}, []float64{0}, 1)
	assert.NotZero(t, c.Grid[1][2]&0x1, "particle at the axis lands in the centre")

	c.CrossSection([]float64{5}, []float64{5}, 1)
	assert.Equal(t, 2, strings.Count(c.String(), "\n"))
}

func TestReporterStride(t *testing.T) {
	var got []StepMsg
	obs := Reporter(func(msg tea.Msg) { got = append(got, msg.(StepMsg)) }, 10)
	ens := testEnsemble()
	for step := 1; step <= 95; step++ {
		obs.OnStep("Ti-47", step, 95, ens)
	}

	require.Len(t, got, 11)
	assert.Equal(t, 9, got[0].Step)
	assert.Equal(t, 95, got[len(got)-1].Step)

	last := got[len(got)-1]
	assert.Equal(t, 2, last.Alive)
	assert.Equal(t, 1, last.Lost)
	assert.Equal(t, 1, last.Detected)
	assert.Equal(t, []float64{1e-3, 0}, last.X)
	assert.Equal(t, []float64{-1e-3, 0}, last.Y)
}

func TestReporterEveryStepForShortRuns(t *testing.T) {
	n := 0
	obs := Reporter(func(tea.Msg) { n++ }, 0)
	for step := 1; step <= 50; step++ {
		obs.OnStep("a", step, 50, testEnsemble())
	}
	assert.Equal(t, 50, n)
}

func TestModelTracksProgress(t *testing.T) {
	m := NewModel("standard", []string{"Ti-46", "Ti-47"}, 6e-3, nil)

	next, _ := m.Update(StepMsg{Tag: "Ti-47", Step: 50, Total: 100, Alive: 3, Lost: 1, X: []float64{0}, Y: []float64{0}})
	m = next.(Model)
	assert.Equal(t, 0.5, m.rows[1].fraction())
	assert.Equal(t, []float64{0.75}, m.rows[1].survival)
	assert.Zero(t, m.rows[0].fraction())

	next, _ = m.Update(StepMsg{Tag: "extra", Step: 1, Total: 2, Alive: 1})
	m = next.(Model)
	assert.Len(t, m.rows, 3)

	view := m.View()
	assert.Contains(t, view, "STANDARD")
	assert.Contains(t, view, "Ti-46")
	assert.Contains(t, view, "3 alive")
	assert.False(t, m.Done())
}

func TestModelSelectionWraps(t *testing.T) {
	m := NewModel("x", []string{"a", "b"}, 1, nil)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, next.(Model).selected)
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, next.(Model).selected)
}

func TestModelDoneShowsSummary(t *testing.T) {
	m := NewModel("run", []string{"Ti-47"}, 6e-3, nil)
	res := &sim.Result{Tag: "Ti-47", Species: dynamo.Species{Tag: "Ti-47", Count: 4}, Alive: 0, Lost: 1, Detected: 3}

	next, _ := m.Update(DoneMsg{Results: []*sim.Result{res}})
	m = next.(Model)
	require.True(t, m.Done())
	results, err := m.Results()
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Contains(t, m.View(), "75.0%")
}

func TestQuitCancelsUnfinishedRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewModel("run", []string{"a"}, 1, cancel)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Error(t, ctx.Err())
}

func TestSummaryRows(t *testing.T) {
	results := []*sim.Result{
		{Tag: "Ti-46", Species: dynamo.Species{Count: 10}, Alive: 1, Lost: 7, Detected: 2},
		{Tag: "Ti-47", Species: dynamo.Species{Count: 10}, Detected: 10},
	}
	rows := SummaryRows(results)
	assert.Equal(t, []string{"Ti-46", "10", "1", "7", "2", "20.0%"}, rows[0])
	assert.Equal(t, "100.0%", rows[1][5])

	out := SummaryTable(results)
	for _, h := range SummaryHeaders {
		assert.Contains(t, out, h)
	}
}

func TestNextThemeCycles(t *testing.T) {
	defer SetTheme(ThemeCyberpunk.Name)
	start := CurrentTheme.Name
	for range Themes {
		NextTheme()
	}
	assert.Equal(t, start, CurrentTheme.Name)
	assert.Equal(t, ThemeCyberpunk, GetTheme("no-such-theme"))
}
