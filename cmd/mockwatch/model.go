package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"revivio/mocksocket"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	killedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	aliveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	footerStyle = lipgloss.NewStyle().Faint(true)
)

type model struct {
	svc   *mocksocket.Service
	table table.Model
}

func newModel(svc *mocksocket.Service) model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 3},
			{Title: "Host", Width: 20},
			{Title: "Port", Width: 6},
			{Title: "In Bytes", Width: 9},
			{Title: "Out Bytes", Width: 9},
			{Title: "In", Width: 8},
			{Title: "Out", Width: 8},
		}),
		table.WithFocused(false),
		table.WithHeight(12),
	)
	return model{svc: svc, table: t}
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		m.table.SetRows(m.snapshot())
		return m, tick()
	}
	return m, nil
}

func (m model) snapshot() []table.Row {
	surrogates := m.svc.GetAllConnectedSocketMocksClone()
	rows := make([]table.Row, 0, len(surrogates))
	for i, sur := range surrogates {
		addr, port := sur.Facade.ConnectedAddr()
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			addr.Host,
			fmt.Sprintf("%d", port),
			fmt.Sprintf("%d", sur.ControlForSocketInput.BytesRead()),
			fmt.Sprintf("%d", sur.ControlForSocketOutput.BytesWritten()),
			killState(sur.ControlForSocketInput.Killed()),
			killState(sur.ControlForSocketOutput.Killed()),
		})
	}
	return rows
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("mockwatch — %d connected socket(s)", len(m.table.Rows()))))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("q to quit"))
	return b.String()
}

func killState(killed bool) string {
	if killed {
		return killedStyle.Render("killed")
	}
	return aliveStyle.Render("alive")
}
