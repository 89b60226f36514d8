package topology

import (
	"net/netip"
	"testing"
)

func mustPrefix(t *testing.T, s string) netip.Prefix {
	t.Helper()
	p, err := netip.ParsePrefix(s)
	if err != nil {
		t.Fatalf("ParsePrefix(%q) error = %v", s, err)
	}
	return p
}

func mustBuild(t *testing.T, entries [][]string) *Graph {
	t.Helper()
	g, err := Build(entries, BuildOptions{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}
