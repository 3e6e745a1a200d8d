package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/automail/internal/cart"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/theme"
	"github.com/nhle/automail/internal/ui/command"
)

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(line string) tea.Cmd {
	name, arg := command.Parse(line)
	switch name {
	case "refresh", "sync":
		return tea.Batch(m.poller.RefreshAll(), m.teacherList.LoadTeachers())
	case "quit", "q":
		m.poller.Stop()
		return tea.Quit
	case "help":
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil

	case "filter":
		cmd, err := m.teacherList.SetExpression(arg)
		if err != nil {
			m.setStatus(err.Error(), true)
			return nil
		}
		return cmd
	case "college":
		return m.teacherList.SetCollege(arg)
	case "level":
		return m.teacherList.SetSchoolLevel(arg)
	case "clear", "clear-filters":
		return m.teacherList.ClearFilters()

	case "add-all":
		added := cart.AddAll(m.cart, m.teacherList.Visible())
		m.setStatus(fmt.Sprintf("Added %d teachers", added), false)
		return nil
	case "drop-bounced":
		removed := m.dropBounced()
		m.setStatus(fmt.Sprintf("Removed %d bounced teachers from the selection", removed), false)
		return nil
	case "clear-cart":
		m.cart.Clear()
		m.setStatus("Selection cleared", false)
		return nil

	case "cart":
		return m.open(ViewCart)
	case "drafts":
		return m.open(ViewDrafts)
	case "smtp":
		return m.open(ViewSMTP)
	case "logs":
		return m.open(ViewLogs)
	case "files":
		return m.open(ViewFiles)
	case "compose":
		return m.openCompose(model.Draft{})

	case "export":
		if arg == "" {
			m.setStatus("usage: export <path>", true)
			return nil
		}
		return m.exportDraft(arg)
	case "scan-bounces":
		m.setStatus("Scanning mailbox for bounces...", false)
		return m.scanBounces()

	case "theme":
		if arg == "" {
			m.setStatus(fmt.Sprintf("theme %s (available: %s)", theme.Current(), strings.Join(theme.Names(), ", ")), false)
			return nil
		}
		if err := theme.Use(arg); err != nil {
			m.setStatus(err.Error(), true)
			return nil
		}
		m.setStatus("Theme "+arg, false)
		return nil

	case "":
		return nil
	default:
		m.setStatus(fmt.Sprintf("unknown command %q, press ? for the list", name), true)
		return nil
	}
}
