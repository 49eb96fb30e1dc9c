package render

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindMarkdownHTML is the node kind of an HTML element whose content is
// parsed as Markdown.
var KindMarkdownHTML = ast.NewNodeKind("MarkdownHTML")

var (
	openTagPattern  = regexp.MustCompile(`^<([A-Za-z][A-Za-z0-9-]*)((?:\s[^>]*)?)>$`)
	markdownAttrPat = regexp.MustCompile(`\s+markdown(?:\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>"']+))?`)
)

// markdownHTMLNode wraps the Markdown children of an element opened with a
// markdown attribute. open is the opening tag with that attribute removed;
// close is empty when the closing tag is a separate HTML block.
type markdownHTMLNode struct {
	ast.BaseBlock
	open  []byte
	close []byte
}

func (n *markdownHTMLNode) Kind() ast.NodeKind { return KindMarkdownHTML }

func (n *markdownHTMLNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Open": string(n.open)}, nil)
}

// markdownInHTML converts Markdown inside block elements marked with a
// markdown attribute, as in <div markdown="1">.
type markdownInHTML struct {
	parser parser.Parser
}

func (e *markdownInHTML) Extend(m goldmark.Markdown) {
	e.parser = m.Parser()
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(e, 500),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(markdownHTMLRenderer{}, 500),
	))
}

// Transform implements parser.ASTTransformer.
func (e *markdownInHTML) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	var blocks []*ast.HTMLBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if b, ok := n.(*ast.HTMLBlock); ok && entering {
			blocks = append(blocks, b)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	source := reader.Source()
	for _, b := range blocks {
		if node := e.convert(b, source); node != nil {
			b.Parent().ReplaceChild(b.Parent(), b, node)
		}
	}
}

func (e *markdownInHTML) convert(b *ast.HTMLBlock, source []byte) ast.Node {
	if b.HTMLBlockType != ast.HTMLBlockType6 && b.HTMLBlockType != ast.HTMLBlockType7 {
		return nil
	}
	lines := b.Lines()
	if lines.Len() == 0 {
		return nil
	}

	firstSeg := lines.At(0)
	first := bytes.TrimSpace(firstSeg.Value(source))
	m := openTagPattern.FindSubmatch(first)
	if m == nil || !markdownAttrPat.Match(m[2]) {
		return nil
	}
	tag := string(m[1])
	node := &markdownHTMLNode{
		open: []byte("<" + tag + markdownAttrPat.ReplaceAllString(string(m[2]), "") + ">"),
	}

	innerEnd := lines.Len()
	if innerEnd > 1 {
		lastSeg := lines.At(innerEnd - 1)
		last := bytes.TrimSpace(lastSeg.Value(source))
		if strings.EqualFold(string(last), "</"+tag+">") {
			node.close = last
			innerEnd--
		}
	}
	if innerEnd <= 1 {
		return node
	}

	start := lines.At(1).Start
	stop := lines.At(innerEnd - 1).Stop
	// Offsets of the inner document stay those of the full source, so the
	// renderer can resolve segments against it.
	inner := text.NewReader(source[:stop])
	inner.Advance(start)
	sub := e.parser.Parse(inner)
	for c := sub.FirstChild(); c != nil; {
		next := c.NextSibling()
		node.AppendChild(node, c)
		c = next
	}
	return node
}

type markdownHTMLRenderer struct{}

func (markdownHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMarkdownHTML, renderMarkdownHTML)
}

func renderMarkdownHTML(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	node := n.(*markdownHTMLNode)
	if entering {
		_, _ = w.Write(node.open)
		_ = w.WriteByte('\n')
		return ast.WalkContinue, nil
	}
	if len(node.close) > 0 {
		_, _ = w.Write(node.close)
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}
