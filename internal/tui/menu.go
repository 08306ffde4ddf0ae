package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/covidlab/covidload/pkg/covidload"
)

// Choice is the operator's selection from the dataset menu.
type Choice struct {
	// All is true when every job should run.
	All bool

	// Job is the single selected job when All is false.
	Job covidload.LoadJob
}

type menuKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Quit   key.Binding
}

func defaultMenuKeyMap() menuKeyMap {
	return menuKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q/esc", "quit"),
		),
	}
}

type menuStyles struct {
	Title      lipgloss.Style
	Selected   lipgloss.Style
	Unselected lipgloss.Style
	Detail     lipgloss.Style
	Help       lipgloss.Style
}

func defaultMenuStyles() menuStyles {
	return menuStyles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginBottom(1),
		Selected:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		Unselected: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginLeft(4),
		Help:       lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1),
	}
}

// Menu is a bubbletea model listing "load everything" followed by one
// entry per job.
type Menu struct {
	jobs      []covidload.LoadJob
	cursor    int
	submitted bool
	cancelled bool
	keyMap    menuKeyMap
	styles    menuStyles
}

// NewMenu creates the dataset selection menu.
func NewMenu(jobs []covidload.LoadJob) Menu {
	return Menu{
		jobs:   jobs,
		keyMap: defaultMenuKeyMap(),
		styles: defaultMenuStyles(),
	}
}

// Init implements tea.Model.
func (m Menu) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keyMap.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keyMap.Down):
			if m.cursor < len(m.jobs) {
				m.cursor++
			}
		case key.Matches(msg, m.keyMap.Select):
			m.submitted = true
			return m, tea.Quit
		case key.Matches(msg, m.keyMap.Quit):
			m.cancelled = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Menu) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Select a dataset to load"))
	b.WriteString("\n\n")

	m.writeOption(&b, 0, "0. Load all datasets", "")
	for i, job := range m.jobs {
		label := fmt.Sprintf("%d. %s", i+1, job.Name)
		detail := job.SourcePath + " → " + job.Collection
		m.writeOption(&b, i+1, label, detail)
	}

	b.WriteString(m.styles.Help.Render("\n↑/↓ navigate • enter select • q quit"))

	return b.String()
}

func (m Menu) writeOption(b *strings.Builder, index int, label, detail string) {
	style := m.styles.Unselected
	symbol := "○"
	if index == m.cursor {
		style = m.styles.Selected
		symbol = "●"
	}
	b.WriteString(style.Render(symbol + " " + label))
	b.WriteString("\n")
	if detail != "" {
		b.WriteString(m.styles.Detail.Render(detail))
		b.WriteString("\n")
	}
}

// Cancelled returns true if the operator quit without selecting.
func (m Menu) Cancelled() bool {
	return m.cancelled
}

// Choice returns the selection. Only valid after the program finishes
// with a submission.
func (m Menu) Choice() Choice {
	if m.cursor == 0 {
		return Choice{All: true}
	}
	return Choice{Job: m.jobs[m.cursor-1]}
}

// SelectJob runs the menu and returns the operator's choice. Returns an
// error wrapping covidload.ErrMenuCancelled when the operator quits
// without choosing.
func SelectJob(jobs []covidload.LoadJob) (Choice, error) {
	program := tea.NewProgram(NewMenu(jobs))
	final, err := program.Run()
	if err != nil {
		return Choice{}, fmt.Errorf("running selection menu: %w", err)
	}

	menu, ok := final.(Menu)
	if !ok || menu.Cancelled() || !menu.submitted {
		return Choice{}, covidload.ErrMenuCancelled
	}
	return menu.Choice(), nil
}
