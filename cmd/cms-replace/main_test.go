package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testConfig = `default_locale: en
logging:
  level: error
schemas:
  - kind: node
    bundle: article
    label: Article
    fields:
      - name: body
        label: Body
        kind: rich_text
`

const aboutDoc = `---
kind: node
bundle: article
title: About Acme
---
Acme builds things.
`

type workspace struct {
	config string
	dsn    string
	docs   string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		config: filepath.Join(dir, "replace.yaml"),
		dsn:    filepath.Join(dir, "replace.db"),
		docs:   filepath.Join(dir, "docs"),
	}
	if err := os.WriteFile(ws.config, []byte(testConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.MkdirAll(ws.docs, 0o755); err != nil {
		t.Fatalf("mkdir docs: %v", err)
	}
	if err := os.WriteFile(filepath.Join(ws.docs, "about.md"), []byte(aboutDoc), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	return ws
}

func (ws workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	base := []string{"--config", ws.config, "--dsn", ws.dsn, "--quiet"}
	err := run(context.Background(), append(base, args...), &out, &errOut)
	return out.String(), err
}

func (ws workspace) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := ws.run(t, args...)
	if err != nil {
		t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func reportID(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if id, ok := strings.CutPrefix(line, "report "); ok {
			return strings.TrimSpace(id)
		}
	}
	t.Fatalf("no report id in output:\n%s", out)
	return ""
}

func TestSeedSearchReplaceUndoRoundTrip(t *testing.T) {
	ws := newWorkspace(t)

	if out := ws.mustRun(t, "seed", ws.docs); !strings.Contains(out, "seeded 1 records") {
		t.Fatalf("unexpected seed output %q", out)
	}

	out := ws.mustRun(t, "search", "acme")
	if !strings.Contains(out, "2 items, 2 matches") {
		t.Fatalf("unexpected search output:\n%s", out)
	}

	out = ws.mustRun(t, "replace", "acme", "Globex", "--all", "--dry-run")
	if !strings.Contains(out, "replaced 2 occurrences in 1 records") || !strings.Contains(out, "dry run") {
		t.Fatalf("unexpected dry run output:\n%s", out)
	}

	out = ws.mustRun(t, "replace", "acme", "Globex", "--all")
	id := reportID(t, out)

	if out := ws.mustRun(t, "search", "globex"); !strings.Contains(out, "2 items, 2 matches") {
		t.Fatalf("expected replacement to persist:\n%s", out)
	}
	if out := ws.mustRun(t, "reports", "list"); !strings.Contains(out, id) || !strings.Contains(out, "active") {
		t.Fatalf("expected report in listing:\n%s", out)
	}

	out = ws.mustRun(t, "undo", id)
	if !strings.Contains(out, "replaced 2 occurrences") {
		t.Fatalf("unexpected undo output:\n%s", out)
	}
	if out := ws.mustRun(t, "reports", "show", id); !strings.Contains(out, "(undone)") {
		t.Fatalf("expected report to be undone:\n%s", out)
	}
	if out := ws.mustRun(t, "search", "acme"); !strings.Contains(out, "2 items, 2 matches") {
		t.Fatalf("expected original text back:\n%s", out)
	}

	if _, err := ws.run(t, "undo", id); err == nil || !strings.Contains(err.Error(), "already undone") {
		t.Fatalf("expected second undo to fail, got %v", err)
	}
}

func TestReplaceRequiresSelectionOrAll(t *testing.T) {
	ws := newWorkspace(t)
	if _, err := ws.run(t, "replace", "acme", "Globex"); err == nil {
		t.Fatalf("expected validation failure without --all or --select")
	}
}

func TestExportWritesCSVFile(t *testing.T) {
	ws := newWorkspace(t)
	ws.mustRun(t, "seed", ws.docs)

	target := filepath.Join(t.TempDir(), "matches.csv")
	ws.mustRun(t, "export", "acme", "--out", target, "--base-url", "https://example.com")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff")))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "node" || !strings.HasPrefix(rows[1][9], "https://example.com/node/") {
		t.Fatalf("unexpected row %v", rows[1])
	}
}

func TestBuildModuleRejectsUnknownDriver(t *testing.T) {
	_, err := buildModule(moduleOptions{DSN: "ignored", Driver: "oracle"})
	if err == nil {
		t.Fatalf("expected unknown driver to fail")
	}
}
