package viz

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/sim"
)

const (
	canvasWidth     = 32
	canvasHeight    = 12
	sparkWidth      = 32
	historyCapacity = 600
	defaultUpdates  = 200
)

// StepMsg is a progress report for one species.
type StepMsg struct {
	Tag         string
	Step, Total int
	Alive       int
	Lost        int
	Detected    int
	// Transverse positions of the particles still in flight.
	X, Y []float64
}

// DoneMsg ends a run.
type DoneMsg struct {
	Results []*sim.Result
	Err     error
}

// Reporter returns an observer that sends roughly updates StepMsgs per
// species, always including the last step.
func Reporter(send func(tea.Msg), updates int) sim.Observer {
	if updates < 1 {
		updates = defaultUpdates
	}
	return sim.ObserverFunc(func(tag string, step, total int, ens *dynamo.Ensemble) {
		stride := total / updates
		if stride < 1 {
			stride = 1
		}
		if step%stride != 0 && step != total {
			return
		}
		msg := StepMsg{Tag: tag, Step: step, Total: total}
		msg.Alive, msg.Lost, msg.Detected = ens.Counts()
		for n := 0; n < ens.Len(); n++ {
			if ens.Active(n) {
				msg.X = append(msg.X, ens.Pos[dynamo.X][n])
				msg.Y = append(msg.Y, ens.Pos[dynamo.Y][n])
			}
		}
		send(msg)
	})
}

type speciesRow struct {
	tag         string
	step, total int
	alive       int
	lost        int
	detected    int
	x, y        []float64
	// surviving fraction per report
	survival []float64
}

func (r *speciesRow) fraction() float64 {
	if r.total == 0 {
		return 0
	}
	return float64(r.step) / float64(r.total)
}

// Model is the live progress view of a running simulation.
type Model struct {
	title    string
	radius   float64
	rows     []*speciesRow
	index    map[string]int
	selected int
	bar      progress.Model
	canvas   *Canvas
	cancel   context.CancelFunc
	frame    int
	results  []*sim.Result
	err      error
	done     bool
	showHelp bool
}

// NewModel prepares a view for the given species tags. cancel, if not
// nil, is called when the user quits before the run finishes.
func NewModel(title string, tags []string, radius float64, cancel context.CancelFunc) Model {
	m := Model{
		title:  title,
		radius: radius,
		rows:   make([]*speciesRow, len(tags)),
		index:  make(map[string]int, len(tags)),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		canvas: NewCanvas(canvasWidth, canvasHeight),
		cancel: cancel,
	}
	for i, tag := range tags {
		m.rows[i] = &speciesRow{tag: tag}
		m.index[tag] = i
	}
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "tab", "j", "down":
			if len(m.rows) > 0 {
				m.selected = (m.selected + 1) % len(m.rows)
			}
		case "shift+tab", "k", "up":
			if len(m.rows) > 0 {
				m.selected = (m.selected + len(m.rows) - 1) % len(m.rows)
			}
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		w := msg.Width - 50
		if w > 60 {
			w = 60
		}
		if w < 10 {
			w = 10
		}
		m.bar.Width = w
	case StepMsg:
		m.apply(msg)
	case DoneMsg:
		m.done = true
		m.results = msg.Results
		m.err = msg.Err
	}
	return m, nil
}

func (m *Model) apply(msg StepMsg) {
	i, ok := m.index[msg.Tag]
	if !ok {
		i = len(m.rows)
		m.rows = append(m.rows, &speciesRow{tag: msg.Tag})
		m.index[msg.Tag] = i
	}
	r := m.rows[i]
	r.step, r.total = msg.Step, msg.Total
	r.alive, r.lost, r.detected = msg.Alive, msg.Lost, msg.Detected
	r.x, r.y = msg.X, msg.Y
	if n := msg.Alive + msg.Lost + msg.Detected; n > 0 {
		r.survival = append(r.survival, float64(msg.Alive+msg.Detected)/float64(n))
		if len(r.survival) > historyCapacity {
			r.survival = r.survival[1:]
		}
	}
	m.frame++
}

// Done reports whether the run has finished.
func (m Model) Done() bool { return m.done }

// Results returns what the run produced once it has finished.
func (m Model) Results() ([]*sim.Result, error) { return m.results, m.err }

func (m Model) View() string {
	var s strings.Builder
	status := AnimatedSpinner(m.frame) + " RUNNING"
	if m.done {
		status = "DONE"
	}
	s.WriteString(titleStyle().Render(strings.ToUpper(m.title)) + "  " + valueStyle().Render(status) + "\n\n")

	for i, r := range m.rows {
		name := fmt.Sprintf("%-10s", r.tag)
		if i == m.selected {
			name = selectedStyle().Render("> " + name)
		} else {
			name = labelStyle().Render("  " + name)
		}
		counts := fmt.Sprintf(" %d alive  %d lost  %d detected", r.alive, r.lost, r.detected)
		s.WriteString(name + " " + m.bar.ViewAs(r.fraction()) + valueStyle().Render(counts) + "\n")
	}

	if len(m.rows) > 0 {
		r := m.rows[m.selected]
		m.canvas.CrossSection(r.x, r.y, m.radius)
		side := labelStyle().Render("Survival") + "\n" + SparklineChart(r.survival, sparkWidth) + "\n\n" +
			labelStyle().Render("Step") + valueStyle().Render(fmt.Sprintf("%d / %d", r.step, r.total)) + "\n" +
			labelStyle().Render("In flight") + valueStyle().Render(fmt.Sprintf("%d", len(r.x)))
		s.WriteString("\n" + lipgloss.JoinHorizontal(lipgloss.Top,
			panelStyle().Render(m.canvas.String()),
			panelStyle().Render(side)) + "\n")
	}

	if m.done {
		if m.err != nil {
			s.WriteString(errorStyle().Render("error: "+m.err.Error()) + "\n")
		}
		if len(m.results) > 0 {
			s.WriteString(SummaryTable(m.results) + "\n")
		}
	}

	s.WriteString(Separator(sparkWidth+canvasWidth) + "\n")
	if m.showHelp {
		s.WriteString(keyHint().Render("Tab/J/K select species  T cycle theme  ? toggle help  Q quit") + "\n")
	} else {
		s.WriteString(keyHint().Render("? help  Q quit") + "\n")
	}
	return s.String()
}
