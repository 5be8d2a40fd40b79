package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediaframe/internal/services"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[paths]\nstaging = \"/tmp\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, path); err == nil {
		t.Fatal("expected unknown key to fail validation")
	}
}

func TestConfigValidateJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"--json", "config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate --json: %v", err)
	}
	var payload struct {
		Path  string `json:"path"`
		Valid bool   `json:"valid"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if !payload.Valid || payload.Path != env.configPath {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestBassBoostWritesOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeToneInput(t, env.baseDir, "mix.wav")

	out, _, err := runCLI(t, []string{"bassboost", input}, env.configPath)
	if err != nil {
		t.Fatalf("bassboost: %v", err)
	}
	want := filepath.Join(env.cfg.Paths.OutputDir, "bassboosted_audio.wav")
	requireContains(t, out, "Wrote "+want)
	info, err := os.Stat(want)
	if err != nil {
		t.Fatalf("expected output at %s: %v", want, err)
	}
	if info.Size() <= 44 {
		t.Fatalf("output too small: %d bytes", info.Size())
	}

	entries, err := os.ReadDir(env.cfg.Paths.TempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp dir to be empty, found %d entries", len(entries))
	}
}

func TestSpeedJSONOutputToExplicitPath(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeToneInput(t, env.baseDir, "mix.wav")
	target := filepath.Join(env.baseDir, "fast.wav")

	out, _, err := runCLI(t, []string{"--json", "speed", input, "--factor", "2", "--output", target}, env.configPath)
	if err != nil {
		t.Fatalf("speed: %v", err)
	}
	var payload struct {
		RequestID    string `json:"request_id"`
		Kind         string `json:"kind"`
		DownloadName string `json:"download_name"`
		Output       string `json:"output"`
		Bytes        int64  `json:"bytes"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if payload.Kind != "speed_up" || payload.DownloadName != "speedup_audio.wav" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.RequestID == "" {
		t.Fatal("expected request id")
	}
	if payload.Output != target || payload.Bytes == 0 {
		t.Fatalf("unexpected output %q (%d bytes)", payload.Output, payload.Bytes)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected output at %s: %v", target, err)
	}
}

func TestSpeedRejectsNonPositiveFactor(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeToneInput(t, env.baseDir, "mix.wav")

	_, _, err := runCLI(t, []string{"speed", input, "--factor", "0"}, env.configPath)
	if err == nil {
		t.Fatal("expected invalid factor to fail")
	}
	if !errors.Is(err, services.ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
	if got := formatError(err); !strings.HasPrefix(got, "invalid_parameter: ") {
		t.Fatalf("unexpected formatted error %q", got)
	}
	if entries, _ := os.ReadDir(env.cfg.Paths.OutputDir); len(entries) != 0 {
		t.Fatalf("expected no output, found %d entries", len(entries))
	}
}

func TestProcessRejectsMissingInput(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"denoise", filepath.Join(env.baseDir, "missing.wav")}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "read input") {
		t.Fatalf("expected read input error, got %v", err)
	}
}

func TestStatusReportsSections(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, section := range []string{"== Configuration ==", "== Dependencies ==", "== Directories ==", "== Transcript cache =="} {
		requireContains(t, out, section)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "Disabled")
	if strings.Contains(out, "== Services ==") {
		t.Fatal("services section should require --check-services")
	}
}

func TestStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"--json", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if report.ConfigPath != env.configPath {
		t.Fatalf("config path = %q, want %q", report.ConfigPath, env.configPath)
	}
	if len(report.Dependencies) == 0 || len(report.Directories) == 0 {
		t.Fatalf("expected dependency and directory checks, got %+v", report)
	}
	if report.Cache.Enabled {
		t.Fatal("expected transcript cache disabled")
	}
}

func TestFormatError(t *testing.T) {
	wrapped := services.Wrap(services.ErrUnreadableAudio, "audio", "decode", "not audio", nil)
	if got := formatError(wrapped); !strings.HasPrefix(got, "unreadable_audio: ") {
		t.Fatalf("unexpected formatted error %q", got)
	}
	plain := errors.New("boom")
	if got := formatError(plain); got != "boom" {
		t.Fatalf("plain error = %q", got)
	}
}

func TestResolveDestination(t *testing.T) {
	dir := t.TempDir()
	if got := resolveDestination("", dir, "x.wav"); got != filepath.Join(dir, "x.wav") {
		t.Fatalf("empty output = %q", got)
	}
	if got := resolveDestination(dir, "/unused", "x.wav"); got != filepath.Join(dir, "x.wav") {
		t.Fatalf("directory output = %q", got)
	}
	file := filepath.Join(dir, "named.wav")
	if got := resolveDestination(file, "/unused", "x.wav"); got != file {
		t.Fatalf("file output = %q", got)
	}
}
