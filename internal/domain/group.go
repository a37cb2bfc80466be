package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CommitterGroup maps committer names to the pull request references found in their commits.
// Committers keep first-discovery order; references keep discovery order per committer.
// The JSON form is an object keyed by committer, emitted and parsed in that order.
type CommitterGroup struct {
	order []string
	refs  map[string][]PullRequestRef
}

func NewCommitterGroup() *CommitterGroup {
	return &CommitterGroup{refs: make(map[string][]PullRequestRef)}
}

func (g *CommitterGroup) Add(committer string, ref PullRequestRef) {
	if committer == "" {
		committer = UnknownCommitter
	}
	if g.refs == nil {
		g.refs = make(map[string][]PullRequestRef)
	}
	if _, ok := g.refs[committer]; !ok {
		g.order = append(g.order, committer)
	}
	g.refs[committer] = append(g.refs[committer], ref)
}

func (g *CommitterGroup) Committers() []string {
	if g == nil {
		return nil
	}
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

func (g *CommitterGroup) Refs(committer string) []PullRequestRef {
	if g == nil {
		return nil
	}
	return g.refs[committer]
}

// Len is the number of committers.
func (g *CommitterGroup) Len() int {
	if g == nil {
		return 0
	}
	return len(g.order)
}

// Total is the number of references across all committers.
func (g *CommitterGroup) Total() int {
	n := 0
	for _, c := range g.Committers() {
		n += len(g.refs[c])
	}
	return n
}

func (g *CommitterGroup) Equal(o *CommitterGroup) bool {
	if g.Len() != o.Len() {
		return false
	}
	for i, c := range g.Committers() {
		if o.order[i] != c {
			return false
		}
		a, b := g.refs[c], o.refs[c]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}

func (g *CommitterGroup) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range g.Committers() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(g.refs[c])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (g *CommitterGroup) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("committer group: expected object, got %v", tok)
	}

	*g = CommitterGroup{refs: make(map[string][]PullRequestRef)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var refs []PullRequestRef
		if err := dec.Decode(&refs); err != nil {
			return fmt.Errorf("committer group %q: %w", name, err)
		}
		for _, r := range refs {
			g.Add(name, r)
		}
	}
	_, err = dec.Token()
	return err
}
