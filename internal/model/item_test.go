package model

import "testing"

func TestStatusToggle(t *testing.T) {
	if got := StatusActive.Toggle(); got != StatusDone {
		t.Fatalf("Active.Toggle() = %q, want Done", got)
	}
	if got := StatusDone.Toggle().Toggle(); got != StatusDone {
		t.Fatalf("double toggle = %q, want Done", got)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    Filter
		wantErr bool
	}{
		{"", FilterAll, false},
		{"all", FilterAll, false},
		{"None", FilterAll, false},
		{"ACTIVE", FilterActive, false},
		{" done ", FilterDone, false},
		{"later", FilterAll, true},
	}
	for _, tt := range tests {
		got, err := ParseFilter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFilter(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFilter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilterNextCycles(t *testing.T) {
	f := FilterAll
	seen := []Filter{}
	for i := 0; i < 3; i++ {
		f = f.Next()
		seen = append(seen, f)
	}
	want := []Filter{FilterActive, FilterDone, FilterAll}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("cycle[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
}
