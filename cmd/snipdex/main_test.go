package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "snipdex.db")
	cfg := `
http:
  port: 18765
storage:
  domains: [local, sync]
  areas:
    local:
      driver: sqlite
      path: ` + dbPath + `
    sync:
      driver: sqlite
      path: ` + dbPath + `
      quota_bytes_per_item: 8192
    cache:
      driver: sqlite
      path: ` + dbPath + `
embedding:
  provider: hashing
  dimensions: 128
logging:
  level: error
`
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRunJSON[T any](t *testing.T, cfgPath string, args ...string) T {
	t.Helper()
	out, err := run(t, cfgPath, append(args, "--json")...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("%v: decode %q: %v", args, out, err)
	}
	return v
}

func TestCLI_SnippetLifecycle(t *testing.T) {
	cfg := writeTestConfig(t)

	bread := mustRunJSON[snippetView](t, cfg, "add", "--domain", "sync", "sourdough", "bread", "recipe")
	if bread.ID == "" || bread.Domain != "sync" || bread.Text != "sourdough bread recipe" {
		t.Fatalf("unexpected add output: %+v", bread)
	}
	mustRunJSON[snippetView](t, cfg, "add", "kubernetes cluster autoscaling")

	// State persists across invocations through the sqlite file.
	all := mustRunJSON[[]snippetView](t, cfg, "list")
	if len(all) != 2 || all[0].Domain != "local" || all[1].ID != bread.ID {
		t.Fatalf("unexpected list: %+v", all)
	}

	found := mustRunJSON[struct {
		State   string        `json:"state"`
		Results []snippetView `json:"results"`
	}](t, cfg, "search", "sourdough bread recipe")
	if found.State != "done" || len(found.Results) != 2 {
		t.Fatalf("unexpected search: %+v", found)
	}
	if found.Results[0].ID != bread.ID || found.Results[0].Score == nil || *found.Results[0].Score < 0.999 {
		t.Errorf("expected exact match first, got %+v", found.Results[0])
	}

	moved := mustRunJSON[snippetView](t, cfg, "move", bread.ID, "--from", "sync", "--to", "local")
	if moved.Domain != "local" {
		t.Errorf("expected local, got %s", moved.Domain)
	}
	if local := mustRunJSON[[]snippetView](t, cfg, "list", "--domain", "local"); len(local) != 2 {
		t.Errorf("expected 2 local snippets, got %d", len(local))
	}

	if _, err := run(t, cfg, "rm", bread.ID, "--domain", "sync"); err == nil {
		t.Error("expected error deleting from the wrong domain")
	}
	if _, err := run(t, cfg, "rm", bread.ID, "--domain", "local"); err != nil {
		t.Fatalf("rm: %v", err)
	}

	if _, err := run(t, cfg, "clear", "local"); err == nil {
		t.Error("expected clear without --yes to fail")
	}
	out, err := run(t, cfg, "clear", "local", "--yes")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !strings.Contains(out, "Removed 1 snippets from local") {
		t.Errorf("unexpected clear output %q", out)
	}
	if rest := mustRunJSON[[]snippetView](t, cfg, "list"); len(rest) != 0 {
		t.Errorf("expected empty store, got %d", len(rest))
	}
}

func TestCLI_AddRejectsUnknownDomain(t *testing.T) {
	cfg := writeTestConfig(t)

	if _, err := run(t, cfg, "add", "--domain", "cloud", "text"); err == nil {
		t.Fatal("expected error for unknown domain")
	}
}

func TestCLI_Version(t *testing.T) {
	out, err := run(t, "does-not-exist.yaml", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "snipdex ") {
		t.Errorf("unexpected version output %q", out)
	}
}
