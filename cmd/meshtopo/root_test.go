package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"meshtopo/internal/config"
)

func writeTopology(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lab.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvStateDir, t.TempDir())
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestRoot_MissingLinksFails(t *testing.T) {
	path := writeTopology(t, "prefix: empty\n")
	_, err := execute(t, path, "--graph")
	if !errors.Is(err, config.ErrNoLinks) {
		t.Fatalf("Execute() error = %v, want ErrNoLinks", err)
	}
}

func TestRoot_ActionFlags(t *testing.T) {
	path := writeTopology(t, "links:\n  - endpoints: [\"a:eth1\", \"b:eth1\"]\n")

	if _, err := execute(t, path); err == nil {
		t.Fatal("Execute() without an action flag succeeded")
	}
	_, err := execute(t, path, "--create", "--destroy")
	if err == nil || !strings.Contains(err.Error(), "none of the others can be") {
		t.Fatalf("Execute() with two actions error = %v", err)
	}
	if _, err := execute(t, "--graph"); err == nil {
		t.Fatal("Execute() without a topology argument succeeded")
	}
}

func TestRoot_Graph(t *testing.T) {
	path := writeTopology(t, "links:\n  - endpoints: [\"a:eth1\", \"host-b:eth1:10.0.0.2/24\"]\n")

	out, err := execute(t, path, "--graph")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	graphPath := filepath.Join(filepath.Dir(path), "lab.json")
	if !strings.Contains(out, graphPath) {
		t.Fatalf("output = %q, want graph path", out)
	}
	data, err := os.ReadFile(graphPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var doc struct {
		Nodes []struct{ ID, Group string }
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(doc.Nodes) != 2 || doc.Nodes[1].Group != "host" {
		t.Fatalf("nodes = %+v", doc.Nodes)
	}
}

func TestSelected(t *testing.T) {
	yes, no := true, false
	o := options{actions: map[string]*bool{}}
	for _, name := range actionFlags {
		o.actions[name] = &no
	}
	o.actions[flagLLDP] = &yes
	if got := o.selected(); got != flagLLDP {
		t.Fatalf("selected() = %q, want %q", got, flagLLDP)
	}
}
