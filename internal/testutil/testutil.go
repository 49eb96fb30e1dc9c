// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CreateMarkdownFile creates a markdown file with specified content
func CreateMarkdownFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to create test file %s: %v", path, err)
	}
	return path
}

// CreateSimpleFile creates a basic test markdown file with standard content
func CreateSimpleFile(t *testing.T, dir string) string {
	t.Helper()
	return CreateMarkdownFile(t, dir, "test.md", MarkdownSimple)
}

// AssertValidHTML checks for required HTML structure elements
func AssertValidHTML(t *testing.T, html string) {
	t.Helper()
	required := []string{
		"<!DOCTYPE html>",
		"<html",
		"<head>",
		"<body>",
		"</body>",
		"</html>",
	}
	for _, tag := range required {
		if !strings.Contains(html, tag) {
			t.Errorf("HTML missing required tag: %s", tag)
		}
	}
}

// AssertContains is a helper for checking string containment with clear error messages
func AssertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected string to contain %q, got: %s", substr, s)
	}
}

// AssertNotContains is a helper for checking string non-containment
func AssertNotContains(t *testing.T, s, substr string) {
	t.Helper()
	if strings.Contains(s, substr) {
		t.Errorf("expected string NOT to contain %q, but it does", substr)
	}
}

// AssertStatusCode checks HTTP status code with clear error message
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("expected status code %d, got %d", want, got)
	}
}
