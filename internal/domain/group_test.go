package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestIsDeployed(t *testing.T) {
	cases := []struct {
		name    string
		records []TimelineRecord
		want    bool
	}{
		{"empty", nil, false},
		{"succeeded stage", []TimelineRecord{{Type: "Stage", Name: "Deploy-Prod", State: "completed", Result: "succeeded"}}, true},
		{"failed stage", []TimelineRecord{{Type: "Stage", Name: "Deploy-Prod", State: "completed", Result: "failed"}}, false},
		{"in progress", []TimelineRecord{{Type: "Stage", Name: "Deploy-Prod", State: "inProgress"}}, false},
		{"job with stage name", []TimelineRecord{{Type: "Job", Name: "Deploy-Prod", State: "completed", Result: "succeeded"}}, false},
		{"other stage", []TimelineRecord{{Type: "Stage", Name: "Deploy-Dev", State: "completed", Result: "succeeded"}}, false},
		{"second record matches", []TimelineRecord{
			{Type: "Stage", Name: "Deploy-Prod", State: "completed", Result: "failed"},
			{Type: "Stage", Name: "Deploy-Prod", State: "Completed", Result: "Succeeded"},
		}, true},
	}

	for _, tc := range cases {
		if got := IsDeployed(tc.records, "Deploy-Prod"); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestCommit_RangeDateFallsBackToAuthor(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c := Commit{Author: GitUserDate{Date: at}}
	if !c.RangeDate().Equal(at) {
		t.Errorf("expected author date, got %v", c.RangeDate())
	}

	ct := at.Add(time.Hour)
	c.Committer.Date = ct
	if !c.RangeDate().Equal(ct) {
		t.Errorf("expected committer date, got %v", c.RangeDate())
	}
}

func TestCommitterGroup_KeepsDiscoveryOrder(t *testing.T) {
	g := NewCommitterGroup()
	g.Add("bob", PullRequestRef{Number: "2"})
	g.Add("alice", PullRequestRef{Number: "1"})
	g.Add("bob", PullRequestRef{Number: "3"})
	g.Add("", PullRequestRef{Number: "4"})

	got := g.Committers()
	want := []string{"bob", "alice", UnknownCommitter}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if refs := g.Refs("bob"); len(refs) != 2 || refs[0].Number != "2" || refs[1].Number != "3" {
		t.Errorf("unexpected refs for bob: %+v", refs)
	}
	if g.Total() != 4 {
		t.Errorf("expected 4 refs, got %d", g.Total())
	}
}

func TestCommitterGroup_JSONPreservesOrder(t *testing.T) {
	g := NewCommitterGroup()
	g.Add("zed", PullRequestRef{Number: "9", Message: "Merged PR 9: z", Link: "u9"})
	g.Add("amy", PullRequestRef{Number: "1", Message: "Merged PR 1: a", Link: "u1"})

	b, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var back CommitterGroup
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.Equal(&back) {
		t.Errorf("round trip changed group: %s", b)
	}
}
