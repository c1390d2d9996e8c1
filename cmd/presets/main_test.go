package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePreset(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write preset: %v", err)
	}
	return path
}

func hasMessage(result ValidationResult, substr string) bool {
	for _, msg := range result.Messages {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func TestValidatePreset_Valid(t *testing.T) {
	path := writePreset(t, t.TempDir(), "classic.json", `{
		"name": "Classic",
		"description": "Eight pairs",
		"pairs": 8,
		"time_limit_seconds": 120
	}`)

	result := validatePreset(path)
	if !result.Valid {
		t.Fatalf("Expected valid preset, but got errors: %v", result.Messages)
	}
	if result.File != "classic.json" {
		t.Errorf("Expected file name classic.json, got %s", result.File)
	}
	if !hasMessage(result, "8 pairs, 16 cards") || !hasMessage(result, "15.0s per pair") {
		t.Errorf("Expected analysis lines, got %v", result.Messages)
	}
	if hasMessage(result, "Warning") {
		t.Errorf("Did not expect a pace warning, got %v", result.Messages)
	}
}

func TestValidatePreset_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad json", `{"name": "x", invalid}`, "Invalid JSON"},
		{"unknown field", `{"name": "x", "pairs": 2, "time_limit_seconds": 10, "grid_size": 4}`, "Invalid JSON"},
		{"missing name", `{"pairs": 2, "time_limit_seconds": 10}`, "name is required"},
		{"no pairs", `{"name": "x", "pairs": 0, "time_limit_seconds": 10}`, "pairs must be between"},
		{"too many pairs", `{"name": "x", "pairs": 1000, "time_limit_seconds": 10}`, "pairs must be between"},
		{"no time", `{"name": "x", "pairs": 2}`, "time_limit_seconds must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validatePreset(writePreset(t, t.TempDir(), "p.json", tt.content))
			if result.Valid {
				t.Fatal("Expected invalid preset")
			}
			if !hasMessage(result, tt.want) {
				t.Errorf("Expected %q error, got %v", tt.want, result.Messages)
			}
		})
	}
}

func TestValidatePreset_MissingFile(t *testing.T) {
	result := validatePreset("/non/existent/file.json")
	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if !hasMessage(result, "Failed to read file") {
		t.Error("Expected 'Failed to read file' error")
	}
}

func TestAnalyzePreset_FastPace(t *testing.T) {
	result := validatePreset(writePreset(t, t.TempDir(), "rush.json",
		`{"name": "Rush", "pairs": 10, "time_limit_seconds": 30}`))
	if !result.Valid {
		t.Fatalf("Expected valid preset, got %v", result.Messages)
	}
	if !hasMessage(result, "Warning") {
		t.Errorf("Expected a pace warning, got %v", result.Messages)
	}
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "classic.json", `{"name": "Classic", "pairs": 8, "time_limit_seconds": 120}`)
	writePreset(t, dir, "copy.json", `{"name": "classic", "pairs": 4, "time_limit_seconds": 60}`)
	writePreset(t, dir, "broken.json", `{`)

	results, problems, err := validateDir(dir)
	if err != nil {
		t.Fatalf("validateDir failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	if len(problems) != 1 || !strings.Contains(problems[0], "Duplicate preset name") {
		t.Errorf("Expected a duplicate name problem, got %v", problems)
	}
}

func TestValidateDir_MissingDefault(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "easy.json", `{"name": "Easy", "pairs": 4, "time_limit_seconds": 60}`)

	_, problems, err := validateDir(dir)
	if err != nil {
		t.Fatalf("validateDir failed: %v", err)
	}
	if len(problems) != 1 || !strings.Contains(problems[0], "Default preset") {
		t.Errorf("Expected a missing default problem, got %v", problems)
	}

	if _, _, err := validateDir(t.TempDir()); err == nil {
		t.Error("Expected error for a directory without presets")
	}
}

func TestRepositoryPresets(t *testing.T) {
	dir := filepath.Join("..", "..", "configs")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	results, problems, err := validateDir(dir)
	if err != nil {
		t.Fatalf("validateDir failed: %v", err)
	}
	for _, r := range results {
		if !r.Valid {
			t.Errorf("%s is invalid: %v", r.File, r.Messages)
		}
	}
	if len(problems) > 0 {
		t.Errorf("Unexpected problems: %v", problems)
	}
}
