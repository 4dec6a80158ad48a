package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStatesCommandDOT(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"states"})
	if err := root.Execute(); err != nil {
		t.Fatalf("states = %v", err)
	}
	dot := out.String()
	if !strings.HasPrefix(dot, "digraph interaction {") {
		t.Errorf("states output starts with %q, want a digraph", firstLine(dot))
	}
	for _, state := range []string{"Idle", "TooltipShown", "ActionMenuShown"} {
		if !strings.Contains(dot, state) {
			t.Errorf("states output misses %s", state)
		}
	}
}

func TestStatesCommandFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.dot")
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	root.SetArgs([]string{"states", "-o", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("states -o = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "digraph") {
		t.Errorf("%s holds no digraph", path)
	}
}

func TestStatesCommandUnknownFormat(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"states", "-f", "png"})
	if err := root.Execute(); err == nil {
		t.Error("states -f png = nil, want error")
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
