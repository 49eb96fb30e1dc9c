// Package render converts a Markdown source into the standalone HTML document
// shown in the viewer window.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed theme/*
var themeFS embed.FS

// highlightStyle is the chroma style used for fenced and inline code.
const highlightStyle = "github"

// Renderer turns Markdown into a complete HTML document. It holds no
// per-document state and is safe for concurrent use.
type Renderer struct {
	md         goldmark.Markdown
	tmpl       *template.Template
	stylesheet template.CSS
}

type documentData struct {
	Title      string
	Stylesheet template.CSS
	Content    template.HTML
}

// frontMatter is the subset of front matter keys the viewer understands.
type frontMatter struct {
	Title string `yaml:"title" toml:"title"`
}

// New builds a Renderer with the fixed conversion feature set and theme.
func New() (*Renderer, error) {
	tmplData, err := themeFS.ReadFile("theme/document.html")
	if err != nil {
		return nil, fmt.Errorf("load document template: %w", err)
	}
	tmpl, err := template.New("document").Parse(string(tmplData))
	if err != nil {
		return nil, fmt.Errorf("parse document template: %w", err)
	}

	cssData, err := themeFS.ReadFile("theme/markdown.css")
	if err != nil {
		return nil, fmt.Errorf("load theme CSS: %w", err)
	}

	// Code is highlighted with CSS classes, so the chroma rules for the
	// style are appended to the fixed theme once.
	var css bytes.Buffer
	css.Write(cssData)
	css.WriteByte('\n')
	style := styles.Get(highlightStyle)
	if err := chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&css, style); err != nil {
		return nil, fmt.Errorf("generate highlight CSS: %w", err)
	}

	return &Renderer{
		md:         newMarkdown(),
		tmpl:       tmpl,
		stylesheet: template.CSS(css.String()),
	}, nil
}

// newMarkdown creates the configured goldmark converter
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(highlightStyle),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
			newInlineHighlighting(highlightStyle),
			mathExtension{},
			&markdownInHTML{},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
}

// Fragment converts Markdown into an HTML fragment without the document shell.
func (r *Renderer) Fragment(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("markdown convert: %w", err)
	}
	return buf.Bytes(), nil
}

// Render converts src into a full HTML document. name is the source file
// name, used as the title unless the front matter provides one.
func (r *Renderer) Render(name string, src []byte) ([]byte, error) {
	title, body := splitFrontMatter(src)
	if title == "" {
		title = filepath.Base(name)
	}

	fragment, err := r.Fragment(body)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, documentData{
		Title:      title,
		Stylesheet: r.stylesheet,
		Content:    template.HTML(fragment),
	}); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return buf.Bytes(), nil
}

// splitFrontMatter strips a leading front matter block. Malformed front
// matter is left in place and rendered as Markdown.
func splitFrontMatter(src []byte) (string, []byte) {
	var meta frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err != nil {
		return "", src
	}
	return strings.TrimSpace(meta.Title), body
}
