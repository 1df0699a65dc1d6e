package thread

import (
	"testing"

	"github.com/corvushq/scanweave/manifest"
)

func row(fp, seqID, order string) manifest.Row {
	return manifest.Row{FilePath: fp, Category: "X", DocType: "Y", SequenceID: seqID, SequenceOrder: order}
}

func TestGroupSequences_OrdersBySequenceOrder(t *testing.T) {
	agent := New(DefaultConfig())
	rows := []manifest.Row{
		row("a.jpg", "s1", "2"),
		row("b.jpg", "s1", "1"),
	}
	grouped := agent.GroupSequences(rows)
	if len(grouped) != 1 {
		t.Fatalf("sequences: got %d, want 1", len(grouped))
	}
	s1 := grouped["s1"]
	if len(s1) != 2 {
		t.Fatalf("s1 members: got %d, want 2", len(s1))
	}
	if s1[0].FilePath != "b.jpg" || s1[1].FilePath != "a.jpg" {
		t.Errorf("order: got [%s %s], want [b.jpg a.jpg]", s1[0].FilePath, s1[1].FilePath)
	}
}

func TestGroupSequences_MissingIDBecomesSingleton(t *testing.T) {
	agent := New(DefaultConfig())
	tests := []struct {
		name  string
		seqID string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"nan lower", "nan"},
		{"nan pandas", "NaN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grouped := agent.GroupSequences([]manifest.Row{row("c.jpg", tt.seqID, "")})
			members, ok := grouped["singleton::c.jpg"]
			if !ok {
				t.Fatalf("grouped keys = %v, want singleton::c.jpg", keys(grouped))
			}
			if len(members) != 1 || members[0].FilePath != "c.jpg" {
				t.Errorf("members: got %+v", members)
			}
		})
	}
}

func TestGroupSequences_MissingIDsDoNotCollide(t *testing.T) {
	// WHY: two rows with no thread metadata must land in distinct sequences.
	agent := New(DefaultConfig())
	grouped := agent.GroupSequences([]manifest.Row{
		row("a.jpg", "", ""),
		row("b.jpg", "nan", ""),
	})
	if len(grouped) != 2 {
		t.Fatalf("sequences: got %d, want 2 (keys %v)", len(grouped), keys(grouped))
	}
}

func TestGroupSequences_UnparsableOrderSortsLastStably(t *testing.T) {
	agent := New(DefaultConfig())
	rows := []manifest.Row{
		row("u1.jpg", "s1", "oops"),
		row("n2.jpg", "s1", "2"),
		row("u2.jpg", "s1", ""),
		row("n1.jpg", "s1", "1"),
	}
	got := agent.GroupSequences(rows)["s1"]
	want := []string{"n1.jpg", "n2.jpg", "u1.jpg", "u2.jpg"}
	for i, w := range want {
		if got[i].FilePath != w {
			t.Fatalf("position %d: got %s, want %s (full: %v)", i, got[i].FilePath, w, paths(got))
		}
	}
}

func TestGroupSequences_FloatOrder(t *testing.T) {
	agent := New(DefaultConfig())
	got := agent.GroupSequences([]manifest.Row{
		row("b.jpg", "s1", "1.5"),
		row("a.jpg", "s1", "1.2"),
	})["s1"]
	if got[0].FilePath != "a.jpg" {
		t.Errorf("float order: got %v", paths(got))
	}
}

func TestGroupSequences_Disabled(t *testing.T) {
	agent := New(Config{EnableThreads: false})
	rows := []manifest.Row{
		row("a.jpg", "s1", "1"),
		row("b.jpg", "s1", "2"),
		{Category: "X", DocType: "Y"}, // no file_path → positional key
	}
	grouped := agent.GroupSequences(rows)
	if len(grouped) != 3 {
		t.Fatalf("sequences: got %d, want 3", len(grouped))
	}
	for _, key := range []string{"a.jpg", "b.jpg", "seq_2"} {
		if members, ok := grouped[key]; !ok || len(members) != 1 {
			t.Errorf("key %q: members %v", key, members)
		}
	}
}

func TestGroupSequences_Empty(t *testing.T) {
	agent := New(DefaultConfig())
	if got := agent.GroupSequences(nil); len(got) != 0 {
		t.Errorf("empty input: got %v", got)
	}
}

func TestGroupSequences_EveryRowExactlyOnce(t *testing.T) {
	agent := New(DefaultConfig())
	rows := []manifest.Row{
		row("a.jpg", "s1", "1"),
		row("b.jpg", "", ""),
		row("c.jpg", "s2", "bad"),
		row("d.jpg", "s1", ""),
	}
	grouped := agent.GroupSequences(rows)
	total := 0
	seen := map[string]bool{}
	for _, members := range grouped {
		for _, m := range members {
			total++
			if seen[m.FilePath] {
				t.Errorf("row %s appears in more than one sequence", m.FilePath)
			}
			seen[m.FilePath] = true
		}
	}
	if total != len(rows) {
		t.Errorf("rows across groups: got %d, want %d", total, len(rows))
	}
}

func TestSequenceKey(t *testing.T) {
	if got := SequenceKey(row("a.jpg", " s9 ", "")); got != "s9" {
		t.Errorf("trimmed key: got %q", got)
	}
	if got := SequenceKey(row("a.jpg", "", "")); got != "singleton::a.jpg" {
		t.Errorf("singleton key: got %q", got)
	}
}

func keys(m map[string][]manifest.Row) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func paths(rows []manifest.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.FilePath)
	}
	return out
}
