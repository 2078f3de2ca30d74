package textutil

import "testing"

func TestNameKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane Doe", "jane doe"},
		{"  JANE   doe ", "jane doe"},
		{"Jane-Doe", "jane doe"},
		{"ÉLODIE", "élodie"},
		{"Studio 21!", "studio 21"},
		{"", ""},
		{"...", ""},
	}
	for _, tt := range tests {
		if got := NameKey(tt.in); got != tt.want {
			t.Errorf("NameKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNameIndex(t *testing.T) {
	idx := NewNameIndex()
	idx.Remember("Jane Doe", 4)
	idx.Remember("", 9)
	idx.Remember("Nobody", 0)

	if id, ok := idx.Lookup("JANE-DOE"); !ok || id != 4 {
		t.Fatalf("Lookup = %d, %v", id, ok)
	}
	if _, ok := idx.Lookup("John Doe"); ok {
		t.Fatal("unexpected hit")
	}
	if idx.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", idx.Len())
	}
}

func TestNameIndexPlan(t *testing.T) {
	idx := NewNameIndex()
	idx.Plan("Acme Studio")
	idx.Plan("")
	if !idx.Planned("ACME-studio") {
		t.Fatal("expected spelling variant to be planned")
	}
	if idx.Planned("") || idx.Planned("Other") {
		t.Fatal("unexpected planned name")
	}
	if _, ok := idx.Lookup("Acme Studio"); ok || idx.Len() != 0 {
		t.Fatal("planned names must not resolve to ids")
	}
}
