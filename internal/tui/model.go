// Package tui is the terminal dashboard for a local triage run: a
// stage tracker, a live progress tail while the pipeline works, and
// result screens once the artifact is ready.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/clarity/internal/pipeline"
	"github.com/imkarma/clarity/internal/triage"
)

type screenType int

const (
	screenRun screenType = iota
	screenReport
	screenTop
	screenPlans
)

// Pipeline phases shown in the tracker.
const numPhases = 6

var phaseLabels = [numPhases]string{"fetch", "cluster", "label", "rank", "plan", "report"}

// phaseIndex maps progress-log tags to tracker positions.
var phaseIndex = map[string]int{
	"fetch":      0,
	"cluster":    1,
	"label":      2,
	"prioritize": 3,
	"plan":       4,
	"report":     5,
}

// Model is the top-level bubbletea model.
type Model struct {
	pipe *pipeline.Pipeline
	req  triage.Request

	screen     screenType
	phase      int
	phasesDone [numPhases]bool
	running    bool
	quitting   bool

	artifact *triage.Artifact
	runErr   error
	logTail  []pipeline.Entry

	spinner  spinner.Model
	viewport viewport.Model
	vpReady  bool

	width  int
	height int
}

// New builds the model for one run request.
func New(pipe *pipeline.Pipeline, req triage.Request) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		pipe:    pipe,
		req:     req,
		screen:  screenRun,
		running: true,
		spinner: sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startRun(), tickLog())
}

type runDoneMsg struct {
	artifact *triage.Artifact
	err      error
}

type logTickMsg struct{}

// startRun executes the pipeline in the background.
func (m Model) startRun() tea.Cmd {
	pipe, req := m.pipe, m.req
	return func() tea.Msg {
		artifact, err := pipe.Run(context.Background(), req)
		return runDoneMsg{artifact: artifact, err: err}
	}
}

// tickLog schedules the next progress-log poll.
func tickLog() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return logTickMsg{}
	})
}
