package markup

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"golang.org/x/net/html"
)

// KindBlock is the node kind of a {{class ... }} container.
var KindBlock = ast.NewNodeKind("BrewBlock")

// Block is a container opened by a line "{{name[,name...]" and closed by the
// matching line "}}". Blocks nest; its content is ordinary markup.
type Block struct {
	ast.BaseBlock
	Classes []string

	// depth counts nested blocks opened inside this one and not yet closed.
	depth int
}

// Kind implements ast.Node.
func (n *Block) Kind() ast.NodeKind {
	return KindBlock
}

// Dump implements ast.Node.
func (n *Block) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Classes": strings.Join(n.Classes, ","),
	}, nil)
}

var (
	blockOpen  = regexp.MustCompile(`^ {0,3}\{\{([\w\-,]*)\s*$`)
	blockClose = regexp.MustCompile(`^ {0,3}\}\}\s*$`)
	className  = regexp.MustCompile(`^[\w\-]+$`)
)

type blockParser struct{}

func (b *blockParser) Trigger() []byte {
	return []byte{'{'}
}

func (b *blockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, _ := reader.PeekLine()
	m := blockOpen.FindSubmatch(line)
	if m == nil {
		return nil, parser.NoChildren
	}
	reader.Advance(lineContentLen(line))

	node := &Block{}
	for _, c := range strings.Split(string(m[1]), ",") {
		if className.MatchString(c) {
			node.Classes = append(node.Classes, c)
		}
	}
	return node, parser.HasChildren
}

// Continue sees every line of the block before its children do, so an inner
// "}}" must be left for the inner block to consume.
func (b *blockParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	n := node.(*Block)
	line, _ := reader.PeekLine()
	switch {
	case blockOpen.Match(line):
		n.depth++
	case blockClose.Match(line):
		if n.depth > 0 {
			n.depth--
			break
		}
		reader.Advance(lineContentLen(line))
		return parser.Close
	}
	return parser.Continue | parser.HasChildren
}

func (b *blockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (b *blockParser) CanInterruptParagraph() bool {
	return true
}

func (b *blockParser) CanAcceptIndentedLine() bool {
	return false
}

// lineContentLen is the length of line without its trailing newline.
func lineContentLen(line []byte) int {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
	}
	return n
}

type blockRenderer struct{}

func (r *blockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindBlock, r.renderBlock)
}

func (r *blockRenderer) renderBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</div>\n")
		return ast.WalkContinue, nil
	}
	n := node.(*Block)
	classes := append([]string{"block"}, n.Classes...)
	_, _ = w.WriteString(`<div class="`)
	_, _ = w.WriteString(html.EscapeString(strings.Join(classes, " ")))
	_, _ = w.WriteString("\">\n")
	return ast.WalkContinue, nil
}

type blockExtension struct{}

func (blockExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithBlockParsers(
		util.Prioritized(&blockParser{}, 150),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&blockRenderer{}, 500),
	))
}
