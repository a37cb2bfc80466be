package tui

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/davarch/build-compare/internal/domain"
)

// PickerModel is the root Bubbletea model for choosing a build to compare.
type PickerModel struct {
	title    string
	list     BuildListModel
	chosen   bool
	quitting bool
}

func NewPickerModel(title string, builds []domain.PipelineRun, deployed int64) PickerModel {
	return PickerModel{title: title, list: NewBuildListModel(builds, deployed)}
}

func (m PickerModel) Init() tea.Cmd { return nil }

func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		m.list = m.list.MoveUp()
	case "down", "j":
		m.list = m.list.MoveDown()
	case "enter":
		if _, ok := m.list.Selected(); ok {
			m.chosen = true
			return m, tea.Quit
		}
	case "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m PickerModel) View() string {
	if m.chosen || m.quitting {
		return ""
	}
	var sb strings.Builder
	if m.title != "" {
		sb.WriteString(m.title + "\n\n")
	}
	sb.WriteString(m.list.View())
	sb.WriteString("\n* deployed   ↑/↓ move   enter select   q quit\n")
	return sb.String()
}

// Chosen returns the selected build once the user has pressed enter.
func (m PickerModel) Chosen() (domain.PipelineRun, bool) {
	if !m.chosen {
		return domain.PipelineRun{}, false
	}
	return m.list.Selected()
}

// PickBuild runs the picker on the terminal. It reports false when the user quits without choosing.
func PickBuild(in io.Reader, out io.Writer, title string, builds []domain.PipelineRun, deployed int64) (domain.PipelineRun, bool, error) {
	final, err := tea.NewProgram(
		NewPickerModel(title, builds, deployed),
		tea.WithInput(in),
		tea.WithOutput(out),
	).Run()
	if err != nil {
		return domain.PipelineRun{}, false, fmt.Errorf("build picker: %w", err)
	}
	run, ok := final.(PickerModel).Chosen()
	return run, ok, nil
}
