package testutil

// Test markdown content constants
// These eliminate magic values scattered throughout test files

const (
	// Basic markdown
	MarkdownSimple = "# Test"
	MarkdownHeader = "# Hello World\n\nThis is a **test**."

	// Conversion features
	MarkdownTable           = "| A | B |\n|---|---|\n| 1 | 2 |"
	MarkdownCode            = "```go\nfunc main() {}\n```"
	MarkdownNestedFence     = "````\n```go\nfunc main() {}\n```\n````"
	MarkdownStrikethrough   = "~~deleted~~"
	MarkdownTaskList        = "- [x] Done\n- [ ] Todo"
	MarkdownInlineHighlight = "Call `#!python print('hi')` first."
	MarkdownMath            = "Euler: $e^{i\\pi} + 1 = 0$"

	// Content variations
	MarkdownFileContent = "# File Content\n\nThis is the content."
	MarkdownModified    = "# Modified Content"

	// Complex markdown
	MarkdownComplex = `# Complex Document

This has:
- Lists
- **Bold** and *italic*
- [Links](https://example.com)
- [x] tasks

| col | val |
|-----|-----|
| a   | 1   |

` + "```go\nfunc test() {}\n```"
)
