package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vw := m.width - 4
		vh := m.height - 8
		if vw < 20 {
			vw = 20
		}
		if vh < 6 {
			vh = 6
		}
		m.viewport.Width = vw
		m.viewport.Height = vh
		m.vpReady = true
		return m, nil

	case logTickMsg:
		m.refreshFromLog()
		if m.running {
			return m, tickLog()
		}
		return m, nil

	case runDoneMsg:
		m.running = false
		m.runErr = msg.err
		m.artifact = msg.artifact
		m.refreshFromLog()
		if msg.err == nil {
			for i := range m.phasesDone {
				m.phasesDone[i] = true
			}
			m.screen = screenReport
			m.setViewportContent()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "r":
		if m.artifact != nil {
			m.screen = screenReport
			m.setViewportContent()
		}
		return m, nil

	case "t":
		if m.artifact != nil {
			m.screen = screenTop
			m.setViewportContent()
		}
		return m, nil

	case "p":
		if m.artifact != nil {
			m.screen = screenPlans
			m.setViewportContent()
		}
		return m, nil

	case "tab":
		if m.artifact != nil {
			switch m.screen {
			case screenReport:
				m.screen = screenTop
			case screenTop:
				m.screen = screenPlans
			default:
				m.screen = screenReport
			}
			m.setViewportContent()
		}
		return m, nil

	case "esc":
		if !m.running && m.screen != screenRun {
			m.screen = screenRun
		}
		return m, nil
	}

	// Everything else (arrows, pgup/pgdn) scrolls the viewport.
	if m.screen != screenRun {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// refreshFromLog derives the tracker state and tail from the pipeline's
// progress log.
func (m *Model) refreshFromLog() {
	entries := m.pipe.Log().Snapshot()

	for _, e := range entries {
		idx, ok := phaseIndex[e.Tag]
		if !ok {
			continue
		}
		if idx > m.phase {
			for i := 0; i < idx; i++ {
				m.phasesDone[i] = true
			}
			m.phase = idx
		}
	}

	const tail = 8
	if len(entries) > tail {
		entries = entries[len(entries)-tail:]
	}
	m.logTail = entries
}

// setViewportContent loads the active result screen into the viewport.
func (m *Model) setViewportContent() {
	if m.artifact == nil {
		return
	}
	if !m.vpReady {
		m.viewport.Width = 80
		m.viewport.Height = 20
	}

	switch m.screen {
	case screenReport:
		m.viewport.SetContent(m.artifact.ReportMarkdown)
	case screenTop:
		m.viewport.SetContent(renderTopIssues(m.artifact))
	case screenPlans:
		m.viewport.SetContent(renderPlans(m.artifact))
	}
	m.viewport.GotoTop()
}
