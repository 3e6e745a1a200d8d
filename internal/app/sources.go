package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	appsync "github.com/nhle/automail/internal/sync"
)

// jobsRegisteredMsg is sent once the background jobs are registered
// with the poller.
type jobsRegisteredMsg struct{}

// bouncedLoadedMsg carries the set of addresses known to bounce.
type bouncedLoadedMsg struct {
	addrs map[string]bool
	err   error
}

// registerJobs registers the directory and send log refreshes.
func (m *Model) registerJobs() tea.Cmd {
	p := m.poller
	teachers := m.services.Teachers
	smtp := m.services.SMTP
	return func() tea.Msg {
		p.RegisterDirectory(teachers)
		p.RegisterLogs(smtp, 0)
		return jobsRegisteredMsg{}
	}
}

// handleSync applies a finished background refresh.
func (m *Model) handleSync(msg appsync.SyncResultMsg) tea.Cmd {
	if msg.Err != nil {
		m.setStatus(fmt.Sprintf("%s refresh failed: %v", msg.Kind, msg.Err), true)
		return nil
	}

	switch msg.Kind {
	case appsync.KindDirectory:
		if msg.NewCount > 0 || msg.Pruned > 0 {
			m.setStatus(fmt.Sprintf("Directory: %d teachers, %d new, %d removed",
				msg.Count, msg.NewCount, msg.Pruned), false)
		} else if m.statusErr || m.statusMsg == "Refreshing..." {
			m.setStatus("", false)
		}
		return m.teacherList.LoadTeachers()

	case appsync.KindLogs:
		m.logsView.SetLogs(msg.Logs)
		failed := 0
		for _, l := range msg.Logs[:min(msg.NewCount, len(msg.Logs))] {
			if l.Failed() {
				failed++
			}
		}
		if failed > 0 {
			m.setStatus(fmt.Sprintf("%d new failed sends, press L to review", failed), true)
		}
	}
	return nil
}

// loadBounced reads the addresses recorded as bouncing.
func (m Model) loadBounced() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		addrs, err := s.BouncedAddresses(context.Background())
		return bouncedLoadedMsg{addrs: addrs, err: err}
	}
}
