package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"mediaframe/internal/deps"
	"mediaframe/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusError, "not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "FFmpeg:", "[ERROR] not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Output directory", statusOK, "ok", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestCheckKind(t *testing.T) {
	cases := []struct {
		result preflight.Result
		want   statusKind
	}{
		{preflight.Result{Passed: true, Detail: "Reachable"}, statusOK},
		{preflight.Result{Passed: true, Detail: "Disabled"}, statusInfo},
		{preflight.Result{Detail: "missing api key"}, statusError},
	}
	for _, tc := range cases {
		if got := checkKind(tc.result); got != tc.want {
			t.Fatalf("checkKind(%+v) = %v, want %v", tc.result, got, tc.want)
		}
	}
}

func TestDependencyRows(t *testing.T) {
	rows := dependencyRows([]deps.Status{
		{Name: "FFmpeg", Available: true, Path: "/usr/bin/ffmpeg", Description: "decode"},
		{Name: "uvx", Optional: true, Detail: "not found"},
		{Name: "FFprobe", Detail: "not found"},
	})
	want := [][]string{
		{"FFmpeg", "ok", "/usr/bin/ffmpeg", "decode"},
		{"uvx", "optional", "not found", ""},
		{"FFprobe", "missing", "not found", ""},
	}
	for i := range want {
		if strings.Join(rows[i], "|") != strings.Join(want[i], "|") {
			t.Fatalf("row %d = %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"Name", "Status"}, [][]string{{"FFmpeg"}}, nil, false)
	if !strings.Contains(out, "FFmpeg") || !strings.Contains(out, "Status") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil, false) != "" {
		t.Fatal("expected empty table for no headers")
	}
}

func TestShouldColorizeNonTerminal(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected non-file writer to disable color")
	}
}
