package presenter

import (
	"strings"
	"testing"

	"github.com/davarch/build-compare/internal/domain"
)

func sampleGroup() *domain.CommitterGroup {
	g := domain.NewCommitterGroup()
	g.Add("Alice", domain.PullRequestRef{Number: "100", Message: "Merged PR 100: x", Link: "https://h/pr/100"})
	g.Add("Bob", domain.PullRequestRef{Number: "101", Message: "Merged PR 101: <y>\n\nbody", Link: "https://h/pr/101"})
	g.Add("Alice", domain.PullRequestRef{Number: "102", Message: "Merged PR 102: z", Link: "https://h/pr/102"})
	return g
}

func TestPlain(t *testing.T) {
	want := "Comparison Results:\n\n" +
		"Alice (2 commits):\n" +
		"  - PR #100: Merged PR 100: x\n" +
		"    Link: https://h/pr/100\n" +
		"  - PR #102: Merged PR 102: z\n" +
		"    Link: https://h/pr/102\n" +
		"\n" +
		"Bob (1 commit):\n" +
		"  - PR #101: Merged PR 101: <y>\n\nbody\n" +
		"    Link: https://h/pr/101\n" +
		"\n"

	got, err := Render(sampleGroup(), FormatPlain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("unexpected output:\n%s", got)
	}
}

func TestPlain_IsIdempotent(t *testing.T) {
	g := sampleGroup()
	a, _ := Render(g, FormatPlain)
	b, _ := Render(g, FormatPlain)
	if a != b {
		t.Error("rendering twice produced different output")
	}
}

func TestAnnotated_EmbedsEscapedLinks(t *testing.T) {
	got := Annotated(sampleGroup())

	if !strings.Contains(got, `# PR 100 Message: Merged PR 100: x - <a href="https://h/pr/100" target="_blank">https://h/pr/100</a>`) {
		t.Errorf("missing annotated line:\n%s", got)
	}
	if !strings.Contains(got, "&lt;y&gt;") {
		t.Errorf("expected message to be escaped:\n%s", got)
	}
	if !strings.HasPrefix(got, "Alice (2 commits):\n") {
		t.Errorf("expected committer header first:\n%s", got)
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown(sampleGroup())
	if !strings.HasPrefix(got, "**Changes by Committer:**\n\n**Alice:**\n* PR 100 Message: Merged PR 100: x - [link](https://h/pr/100)") {
		t.Errorf("unexpected markdown:\n%s", got)
	}
	if !strings.Contains(got, "* PR 101 Message: Merged PR 101: <y> - [link](https://h/pr/101)") {
		t.Errorf("expected first line only:\n%s", got)
	}

	if got := Markdown(domain.NewCommitterGroup()); got != "No relevant changes found." {
		t.Errorf("unexpected empty markdown %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatPlain, "PLAIN": FormatPlain, "html": FormatAnnotated, "md": FormatMarkdown} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("%q: expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := Render(sampleGroup(), Format("pdf")); err == nil {
		t.Error("expected render error for unknown format")
	}
}
