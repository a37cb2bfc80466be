// Package presenter turns a committer group into text for display or clipboard export.
package presenter

import (
	"fmt"
	"html"
	"strings"

	"github.com/davarch/build-compare/internal/domain"
)

type Format string

const (
	FormatPlain     Format = "plain"
	FormatAnnotated Format = "annotated"
	FormatMarkdown  Format = "markdown"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatPlain:
		return FormatPlain, nil
	case FormatAnnotated, "html":
		return FormatAnnotated, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format %q (want plain, annotated or markdown)", s)
	}
}

func Render(g *domain.CommitterGroup, f Format) (string, error) {
	switch f {
	case FormatPlain:
		return Plain(g), nil
	case FormatAnnotated:
		return Annotated(g), nil
	case FormatMarkdown:
		return Markdown(g), nil
	default:
		return "", fmt.Errorf("unknown format %q", f)
	}
}

func Plain(g *domain.CommitterGroup) string {
	var sb strings.Builder
	sb.WriteString("Comparison Results:\n\n")
	for _, c := range g.Committers() {
		refs := g.Refs(c)
		sb.WriteString(header(c, len(refs)))
		for _, r := range refs {
			fmt.Fprintf(&sb, "  - PR #%s: %s\n", r.Number, strings.TrimSpace(r.Message))
			fmt.Fprintf(&sb, "    Link: %s\n", r.Link)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Annotated renders one HTML-linked line per pull request, the form shown in the editor panel.
func Annotated(g *domain.CommitterGroup) string {
	var sb strings.Builder
	for _, c := range g.Committers() {
		refs := g.Refs(c)
		sb.WriteString(header(c, len(refs)))
		for _, r := range refs {
			link := html.EscapeString(r.Link)
			fmt.Fprintf(&sb, "# PR %s Message: %s - <a href=\"%s\" target=\"_blank\">%s</a>\n",
				r.Number, html.EscapeString(strings.TrimSpace(r.Message)), link, link)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func Markdown(g *domain.CommitterGroup) string {
	if g.Len() == 0 {
		return "No relevant changes found."
	}

	var sb strings.Builder
	sb.WriteString("**Changes by Committer:**\n\n")
	for _, c := range g.Committers() {
		fmt.Fprintf(&sb, "**%s:**\n", c)
		for _, r := range g.Refs(c) {
			fmt.Fprintf(&sb, "* PR %s Message: %s - [link](%s)\n", r.Number, firstLine(r.Message), r.Link)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func header(committer string, n int) string {
	noun := "commits"
	if n == 1 {
		noun = "commit"
	}
	return fmt.Sprintf("%s (%d %s):\n", committer, n, noun)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
