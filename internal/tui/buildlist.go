// Package tui holds the terminal build picker used when no build is named on the command line.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/davarch/build-compare/internal/domain"
)

// BuildListModel is an immutable list of builds with a cursor.
type BuildListModel struct {
	builds   []domain.PipelineRun
	deployed int64
	cursor   int
}

// NewBuildListModel marks the build with id deployed as the baseline.
func NewBuildListModel(builds []domain.PipelineRun, deployed int64) BuildListModel {
	return BuildListModel{builds: builds, deployed: deployed}
}

func (m BuildListModel) MoveDown() BuildListModel {
	if m.cursor < len(m.builds)-1 {
		m.cursor++
	}
	return m
}

func (m BuildListModel) MoveUp() BuildListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

func (m BuildListModel) SelectedIndex() int { return m.cursor }

// Selected returns the highlighted build, or false when the list is empty.
func (m BuildListModel) Selected() (domain.PipelineRun, bool) {
	if len(m.builds) == 0 {
		return domain.PipelineRun{}, false
	}
	return m.builds[m.cursor], true
}

func (m BuildListModel) View() string {
	if len(m.builds) == 0 {
		return "No builds found."
	}
	var sb strings.Builder
	for i, b := range m.builds {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		mark := " "
		if b.ID == m.deployed {
			mark = "*"
		}
		fmt.Fprintf(&sb, "%s%s #%-8d %-16s %-10s %-8s %s\n",
			prefix,
			mark,
			b.ID,
			truncate(b.BuildNumber, 16),
			truncate(resultOf(b), 10),
			formatAge(b.FinishTime),
			truncate(firstLine(b.CommitMessage), 60),
		)
	}
	return sb.String()
}

func resultOf(b domain.PipelineRun) string {
	if b.Result != "" {
		return b.Result
	}
	if b.Status != "" {
		return b.Status
	}
	return "--"
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "--"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
