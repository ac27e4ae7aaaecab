package version

import "testing"

func TestVersionStringNonEmpty(t *testing.T) {
	if s := String(); s == "" {
		t.Fatalf("version string is empty")
	}
}

func TestStringIncludesCommit(t *testing.T) {
	old := Commit
	t.Cleanup(func() { Commit = old })

	Commit = "abc1234"
	if s := String(); s != Version+"+abc1234" {
		t.Fatalf("String() = %q, want commit suffix", s)
	}
	Commit = ""
	if s := String(); s != Version {
		t.Fatalf("String() = %q, want bare version %q", s, Version)
	}
}
