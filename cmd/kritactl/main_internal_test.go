package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kritactl/internal/config"
)

func TestComputeRuntimeOptionsUsesConfigDefaults(t *testing.T) {
	cleanup := config.ResetForTesting(t)
	defer cleanup()

	if err := config.ApplyOverrides(map[string]any{
		config.KeyPluginDir: "/cfg/pykrita",
		config.KeyLoraDir:   "/cfg/loras",
	}); err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}

	empty := ""
	opts := computeRuntimeOptions(runtimeFlags{
		pluginDir:    &empty,
		loraDir:      &empty,
		dbPath:       &empty,
		outputFormat: &empty,
	}, map[string]struct{}{})

	if opts.pluginDir != "/cfg/pykrita" {
		t.Errorf("pluginDir = %q, want config value", opts.pluginDir)
	}
	if opts.loraDir != "/cfg/loras" {
		t.Errorf("loraDir = %q, want config value", opts.loraDir)
	}
	if opts.owner != "Kebolder" || opts.repo != "krita-ai-diffusion" {
		t.Errorf("feed = %s/%s, want defaults", opts.owner, opts.repo)
	}
	if opts.checkTimeout != config.DefaultCheckTimeoutSeconds*time.Second {
		t.Errorf("checkTimeout = %v", opts.checkTimeout)
	}
}

func TestComputeRuntimeOptionsFlagWins(t *testing.T) {
	cleanup := config.ResetForTesting(t)
	defer cleanup()

	if err := config.ApplyOverrides(map[string]any{config.KeyPluginDir: "/cfg/pykrita"}); err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}

	flagValue := "/flag/pykrita"
	empty := ""
	opts := computeRuntimeOptions(runtimeFlags{
		pluginDir:    &flagValue,
		loraDir:      &empty,
		dbPath:       &empty,
		outputFormat: &empty,
	}, map[string]struct{}{"plugin-dir": {}})

	if opts.pluginDir != "/flag/pykrita" {
		t.Errorf("pluginDir = %q, want flag value", opts.pluginDir)
	}
}

func writeLora(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("w"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestCmdLorasListing(t *testing.T) {
	dir := t.TempDir()
	writeLora(t, dir, "alpha.safetensors")
	writeLora(t, dir, "style/cel.safetensors")

	var buf bytes.Buffer
	err := cmdLoras(&buf, runtimeOptions{loraDir: dir}, nil)
	if err != nil {
		t.Fatalf("cmdLoras: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "alpha") {
		t.Errorf("output missing root file:\n%s", out)
	}
	if !strings.Contains(out, "style/") || !strings.Contains(out, "cel") {
		t.Errorf("output missing group:\n%s", out)
	}
}

func TestCmdLorasSetStrengthPersists(t *testing.T) {
	dir := t.TempDir()
	writeLora(t, dir, "alpha.safetensors")
	dbPath := filepath.Join(t.TempDir(), "loras.db")
	opts := runtimeOptions{loraDir: dir, dbPath: dbPath}

	var buf bytes.Buffer
	err := cmdLoras(&buf, opts, []string{"set-strength", "alpha.safetensors", "0.6"})
	if err != nil {
		t.Fatalf("set-strength: %v", err)
	}

	buf.Reset()
	if err := cmdLoras(&buf, opts, nil); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(buf.String(), "0.60") {
		t.Errorf("listing missing persisted strength:\n%s", buf.String())
	}
}

func TestCmdLorasSetTrigger(t *testing.T) {
	dir := t.TempDir()
	writeLora(t, dir, "alpha.safetensors")
	dbPath := filepath.Join(t.TempDir(), "loras.db")
	opts := runtimeOptions{loraDir: dir, dbPath: dbPath}

	var buf bytes.Buffer
	if err := cmdLoras(&buf, opts, []string{"set-trigger", "alpha.safetensors", "masterpiece"}); err != nil {
		t.Fatalf("set-trigger: %v", err)
	}

	buf.Reset()
	if err := cmdLoras(&buf, opts, nil); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(buf.String(), "masterpiece") {
		t.Errorf("listing missing trigger words:\n%s", buf.String())
	}
}

func TestCmdLorasBadSubcommand(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	err := cmdLoras(&buf, runtimeOptions{loraDir: dir}, []string{"frobnicate"})
	if err == nil {
		t.Error("expected error for unknown subcommand")
	}
}

func TestCmdLorasRequiresDirectory(t *testing.T) {
	var buf bytes.Buffer
	err := cmdLoras(&buf, runtimeOptions{}, nil)
	if err == nil || !strings.Contains(err.Error(), "lora") {
		t.Errorf("error = %v, want missing directory message", err)
	}
}

func TestCmdStatusMissingPlugin(t *testing.T) {
	var buf bytes.Buffer
	err := cmdStatus(&buf, runtimeOptions{
		pluginDir: t.TempDir(),
		owner:     "Kebolder",
		repo:      "krita-ai-diffusion",
	})
	if err != nil {
		t.Fatalf("cmdStatus: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "not found") {
		t.Errorf("status should report missing plugin:\n%s", out)
	}
	if !strings.Contains(out, "github.com/Kebolder/krita-ai-diffusion") {
		t.Errorf("status should name the release feed:\n%s", out)
	}
}

func TestValueOrUnset(t *testing.T) {
	if got := valueOrUnset("/some/path"); got != "/some/path" {
		t.Errorf("valueOrUnset = %q", got)
	}
	if got := valueOrUnset("  "); !strings.Contains(got, "not set") {
		t.Errorf("blank value = %q, want placeholder", got)
	}
}
