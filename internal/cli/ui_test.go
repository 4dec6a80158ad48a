package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/depotview/pkg/scene"
)

// captureStdout redirects status output for the duration of a test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func TestStatusLines(t *testing.T) {
	tests := []struct {
		name  string
		print func()
		want  []string
	}{
		{"success", func() { printSuccess("Built depot %s", "7") }, []string{"✓", "Built depot 7"}},
		{"error", func() { printError("fetch failed") }, []string{"✗", "fetch failed"}},
		{"warning", func() { printWarning("no cache") }, []string{"!", "no cache"}},
		{"info", func() { printInfo("No depots") }, []string{"›", "No depots"}},
		{"file", func() { printFile("out/7.svg") }, []string{"→", "out/7.svg"}},
		{"key value", func() { printKeyValue("7", "160 units") }, []string{"7", "160 units"}},
		{"next step", func() { printNextStep("Scene", "curl x") }, []string{"Scene:", "curl x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureStdout(t)
			tt.print()
			out := buf.String()
			if !strings.HasSuffix(out, "\n") {
				t.Errorf("output %q should end with a newline", out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
		})
	}
}

func TestPrintSceneStats(t *testing.T) {
	g, err := scene.Build([]scene.LocationRecord{
		{ID: "A-01", X: 0, Z: 0, Stock: 100, LocWeight: 2},
		{ID: "", X: 1, Z: 0, Stock: 10},
	}, scene.DefaultGrid)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	buf := captureStdout(t)
	printSceneStats(g, 0.5)

	out := buf.String()
	for _, w := range []string{"1 locations", "fill 50%", "1 skipped", "record 1"} {
		if !strings.Contains(out, w) {
			t.Errorf("printSceneStats() output %q missing %q", out, w)
		}
	}
}
