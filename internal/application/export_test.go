package application

import (
	"context"
	"errors"
	"testing"

	"github.com/davarch/build-compare/internal/domain"
)

func TestCopySummary(t *testing.T) {
	g := domain.NewCommitterGroup()
	g.Add("alice", domain.PullRequestRef{Number: "7", Message: "Merged PR 7: fix\n\ndetails", Link: "L"})

	clip := &domain.MockClipboard{}
	text, err := CopySummary(context.Background(), clip, g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "**Changes by Committer:**\n\n**alice:**\n* PR 7 Message: Merged PR 7: fix - [link](L)"
	if text != want || clip.Text != want {
		t.Errorf("unexpected summary %q (clipboard %q)", text, clip.Text)
	}
}

func TestCopySummary_EmptyGroupAndFailure(t *testing.T) {
	clip := &domain.MockClipboard{}
	if text, _ := CopySummary(context.Background(), clip, domain.NewCommitterGroup()); text != "No relevant changes found." {
		t.Errorf("unexpected text %q", text)
	}

	boom := errors.New("no display")
	if _, err := CopySummary(context.Background(), &domain.MockClipboard{Err: boom}, nil); !errors.Is(err, boom) {
		t.Errorf("expected wrapped clipboard error, got %v", err)
	}
}
