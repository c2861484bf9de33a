package export

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"html"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	// PageWidthInches is A4 width
	PageWidthInches = 8.27

	pxPerInch = 96.0
	ptPerInch = 72.0

	marginPt = 40.0
	bodySize = 10.5
	codeSize = 8.5

	// measurePageHeightPt is tall enough that the measuring pass never runs off the page
	measurePageHeightPt = 200000.0
)

// PageHeightInches converts rendered content height in CSS pixels into the
// single-page height: 10% plus 100px of slack, at 96 dpi.
func PageHeightInches(contentPx float64) float64 {
	return math.Ceil(contentPx*1.10+100) / pxPerInch
}

// Document is fully resolved report content ready for PDF layout. Image
// references must already be inline data URIs.
type Document struct {
	Title       string
	Markdown    string
	AccentColor string
}

// PDFRenderer lays out a document as a PDF.
type PDFRenderer interface {
	Render(ctx context.Context, doc *Document, w io.Writer) error
}

type rgb struct{ r, g, b int }

var (
	colorBackground = rgb{13, 13, 13}
	colorText       = rgb{229, 229, 229}
	colorMuted      = rgb{160, 160, 160}
	colorCodeFill   = rgb{26, 26, 26}
	headingSizes    = [6]float64{22, 17, 14, 12.5, 11.5, 11}
)

// ParseHexColor parses #rgb or #rrggbb, falling back to def.
func parseHexColor(s string, def rgb) rgb {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return def
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return def
	}
	return rgb{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}
}

// GoFPDFRenderer renders Markdown onto one tall dark page, the way the
// preview pane shows it, so long reports never split across pages.
type GoFPDFRenderer struct {
	md goldmark.Markdown
}

// NewPDFRenderer creates the gofpdf-backed renderer
func NewPDFRenderer() *GoFPDFRenderer {
	return &GoFPDFRenderer{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Render measures the content on an oversized page, then draws it again on a
// page whose height fits the content.
func (r *GoFPDFRenderer) Render(ctx context.Context, doc *Document, w io.Writer) error {
	source := []byte(doc.Markdown)
	root := r.md.Parser().Parse(text.NewReader(source))
	accent := parseHexColor(doc.AccentColor, rgb{74, 222, 128})

	measure := newLayout(measurePageHeightPt, accent, source)
	if err := measure.render(ctx, root); err != nil {
		return err
	}
	contentPx := (measure.pdf.GetY() + marginPt) * pxPerInch / ptPerInch

	final := newLayout(PageHeightInches(contentPx)*ptPerInch, accent, source)
	final.pdf.SetTitle(doc.Title, true)
	final.pdf.SetCreator("aireporter", true)
	if err := final.render(ctx, root); err != nil {
		return err
	}
	if err := final.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

type layout struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	source []byte
	accent rgb
	images map[string]*pdfImage

	family string
	style  string
	size   float64
	color  rgb
}

type pdfImage struct {
	name     string
	widthPx  float64
	heightPx float64
}

func newLayout(heightPt float64, accent rgb, source []byte) *layout {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: PageWidthInches * ptPerInch, Ht: heightPt},
	})
	pdf.SetMargins(marginPt, marginPt, marginPt)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetHeaderFunc(func() {
		w, h := pdf.GetPageSize()
		pdf.SetFillColor(colorBackground.r, colorBackground.g, colorBackground.b)
		pdf.Rect(0, 0, w, h, "F")
	})
	pdf.AddPage()
	pdf.SetXY(marginPt, marginPt)

	l := &layout{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		source: source,
		accent: accent,
		images: make(map[string]*pdfImage),
	}
	l.setFont("Helvetica", "", bodySize)
	l.setColor(colorText)
	return l
}

func (l *layout) render(ctx context.Context, root ast.Node) error {
	for c := root.FirstChild(); c != nil; c = c.NextSibling() {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.block(c, 0)
	}
	if err := l.pdf.Error(); err != nil {
		return fmt.Errorf("layout pdf: %w", err)
	}
	return nil
}

func (l *layout) setFont(family, style string, size float64) {
	l.family, l.style, l.size = family, style, size
	l.pdf.SetFont(family, style, size)
}

func (l *layout) setColor(c rgb) {
	l.color = c
	l.pdf.SetTextColor(c.r, c.g, c.b)
}

func (l *layout) lineHeight() float64 {
	return l.size * 1.45
}

func (l *layout) contentWidth() float64 {
	w, _ := l.pdf.GetPageSize()
	left, _, right, _ := l.pdf.GetMargins()
	return w - left - right
}

// newline ends the current line if anything was written on it
func (l *layout) newline() {
	left, _, _, _ := l.pdf.GetMargins()
	if l.pdf.GetX() > left+0.5 {
		l.pdf.Ln(l.lineHeight())
	}
}

func (l *layout) gap(pt float64) {
	l.pdf.SetY(l.pdf.GetY() + pt)
}

func (l *layout) withIndent(indent float64, fn func()) {
	left, _, _, _ := l.pdf.GetMargins()
	l.pdf.SetLeftMargin(marginPt + indent)
	l.pdf.SetX(marginPt + indent)
	fn()
	l.pdf.SetLeftMargin(left)
	l.pdf.SetX(left)
}

func (l *layout) block(n ast.Node, indent float64) {
	switch node := n.(type) {
	case *ast.Heading:
		level := min(max(node.Level, 1), 6)
		l.gap(6)
		l.setFont("Helvetica", "B", headingSizes[level-1])
		if level <= 2 {
			l.setColor(l.accent)
		} else {
			l.setColor(colorText)
		}
		l.inlines(node)
		l.newline()
		if level == 1 {
			x := l.pdf.GetX()
			y := l.pdf.GetY() + 2
			l.pdf.SetDrawColor(l.accent.r, l.accent.g, l.accent.b)
			l.pdf.SetLineWidth(1)
			l.pdf.Line(x, y, x+l.contentWidth(), y)
			l.gap(6)
		}
		l.setFont("Helvetica", "", bodySize)
		l.setColor(colorText)
		l.gap(4)

	case *ast.Paragraph, *ast.TextBlock:
		l.inlines(node)
		l.newline()
		if _, tight := n.(*ast.TextBlock); !tight {
			l.gap(5)
		}

	case *ast.List:
		l.list(node, indent)

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		l.code(l.lines(n))

	case *ast.Blockquote:
		top := l.pdf.GetY()
		l.setColor(colorMuted)
		l.withIndent(indent+14, func() {
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				l.block(c, indent+14)
			}
		})
		l.setColor(colorText)
		x := marginPt + indent + 4
		l.pdf.SetDrawColor(l.accent.r, l.accent.g, l.accent.b)
		l.pdf.SetLineWidth(2)
		l.pdf.Line(x, top, x, l.pdf.GetY()-4)

	case *ast.ThematicBreak:
		l.gap(4)
		y := l.pdf.GetY()
		l.pdf.SetDrawColor(colorMuted.r, colorMuted.g, colorMuted.b)
		l.pdf.SetLineWidth(0.5)
		l.pdf.Line(marginPt+indent, y, marginPt+indent+l.contentWidth(), y)
		l.gap(10)

	case *ast.HTMLBlock:
		l.html(l.lines(n))
		l.newline()
		l.gap(5)

	case *extast.Table:
		l.table(node)

	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			l.block(c, indent)
		}
	}
}

func (l *layout) list(list *ast.List, indent float64) {
	number := list.Start
	if number == 0 {
		number = 1
	}
	child := indent + 16
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "-"
		if list.IsOrdered() {
			marker = fmt.Sprintf("%d.", number)
			number++
		}
		l.pdf.SetX(marginPt + indent)
		l.pdf.CellFormat(16, l.lineHeight(), l.tr(marker), "", 0, "L", false, 0, "")
		l.withIndent(child, func() {
			l.pdf.SetX(marginPt + child)
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				l.block(c, child)
			}
		})
	}
	if indent == 0 {
		l.gap(5)
	}
}

func (l *layout) code(body string) {
	body = strings.TrimRight(body, "\n")
	l.setFont("Courier", "", codeSize)
	l.pdf.SetFillColor(colorCodeFill.r, colorCodeFill.g, colorCodeFill.b)
	left, _, _, _ := l.pdf.GetMargins()
	l.pdf.SetX(left)
	l.pdf.MultiCell(l.contentWidth(), codeSize*1.4, l.tr(body), "", "L", true)
	l.setFont("Helvetica", "", bodySize)
	l.gap(6)
}

func (l *layout) table(table *extast.Table) {
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		_, header := row.(*extast.TableHeader)
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(l.plain(cell)))
		}
		if header {
			l.setFont("Helvetica", "B", bodySize)
		}
		left, _, _, _ := l.pdf.GetMargins()
		l.pdf.SetX(left)
		l.pdf.MultiCell(l.contentWidth(), l.lineHeight(), l.tr(strings.Join(cells, "  |  ")), "B", "L", false)
		if header {
			l.setFont("Helvetica", "", bodySize)
		}
	}
	l.gap(6)
}

// inlines writes the inline children of n as flowing text
func (l *layout) inlines(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		l.inline(c)
	}
}

func (l *layout) inline(n ast.Node) {
	switch node := n.(type) {
	case *ast.Text:
		l.write(string(node.Segment.Value(l.source)))
		if node.HardLineBreak() {
			l.pdf.Ln(l.lineHeight())
		} else if node.SoftLineBreak() {
			l.write(" ")
		}

	case *ast.String:
		l.write(string(node.Value))

	case *ast.CodeSpan:
		family, style := l.family, l.style
		l.setFont("Courier", "", l.size)
		l.write(l.plain(node))
		l.setFont(family, style, l.size)

	case *ast.Emphasis:
		family, style := l.family, l.style
		add := "I"
		if node.Level >= 2 {
			add = "B"
		}
		if !strings.Contains(style, add) {
			l.setFont(family, style+add, l.size)
		}
		l.inlines(node)
		l.setFont(family, style, l.size)

	case *ast.Link:
		color := l.color
		l.setColor(l.accent)
		l.inlines(node)
		l.setColor(color)

	case *ast.AutoLink:
		color := l.color
		l.setColor(l.accent)
		l.write(string(node.Label(l.source)))
		l.setColor(color)

	case *ast.Image:
		l.image(string(node.Destination), l.plain(node))

	case *ast.RawHTML:
		var sb strings.Builder
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			sb.Write(seg.Value(l.source))
		}
		l.html(sb.String())

	case *extast.TaskCheckBox:
		if node.IsChecked {
			l.write("[x] ")
		} else {
			l.write("[ ] ")
		}

	default:
		l.inlines(n)
	}
}

func (l *layout) write(s string) {
	if s == "" {
		return
	}
	l.pdf.Write(l.lineHeight(), l.tr(s))
}

// plain returns the text content of n without formatting
func (l *layout) plain(n ast.Node) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(l.source))
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func (l *layout) lines(n ast.Node) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(l.source))
	}
	if block, ok := n.(*ast.HTMLBlock); ok && block.HasClosure() {
		sb.Write(block.ClosureLine.Value(l.source))
	}
	return sb.String()
}

var (
	imgTagPattern = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	srcPattern    = regexp.MustCompile(`(?is)\bsrc\s*=\s*"([^"]*)"`)
	altPattern    = regexp.MustCompile(`(?is)\balt\s*=\s*"([^"]*)"`)
	tagPattern    = regexp.MustCompile(`(?s)<[^>]*>`)
)

// html draws <img> tags as images and writes any other text with the tags removed
func (l *layout) html(raw string) {
	last := 0
	for _, loc := range imgTagPattern.FindAllStringIndex(raw, -1) {
		l.write(htmlText(raw[last:loc[0]]))
		tag := raw[loc[0]:loc[1]]
		var src, alt string
		if m := srcPattern.FindStringSubmatch(tag); m != nil {
			src = html.UnescapeString(m[1])
		}
		if m := altPattern.FindStringSubmatch(tag); m != nil {
			alt = html.UnescapeString(m[1])
		}
		l.image(src, alt)
		last = loc[1]
	}
	l.write(htmlText(raw[last:]))
}

func htmlText(s string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
}

// image embeds a data URI image at the current position, scaled to fit the
// content width. Anything else renders as its alt text.
func (l *layout) image(src, alt string) {
	img, err := l.register(src)
	if err != nil || img == nil {
		color := l.color
		l.setColor(colorMuted)
		l.write(fmt.Sprintf("[image: %s]", alt))
		l.setColor(color)
		return
	}

	l.newline()
	wPt := img.widthPx * ptPerInch / pxPerInch
	hPt := img.heightPx * ptPerInch / pxPerInch
	if maxW := l.contentWidth(); wPt > maxW {
		hPt = hPt * maxW / wPt
		wPt = maxW
	}
	x, y := l.pdf.GetX(), l.pdf.GetY()+4
	l.pdf.ImageOptions(img.name, x, y, wPt, hPt, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	l.pdf.SetXY(x, y+hPt+6)
}

// register decodes a data URI and registers it with the document once. The
// image is normalised to 8-bit non-interlaced PNG, the only form every
// gofpdf code path accepts.
func (l *layout) register(src string) (*pdfImage, error) {
	if !strings.HasPrefix(src, "data:") {
		return nil, nil
	}
	sum := sha1.Sum([]byte(src))
	name := "img-" + hex.EncodeToString(sum[:8])
	if img, ok := l.images[name]; ok {
		return img, nil
	}

	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("unsupported data URI")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := decoded.Bounds()
	normalized := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(normalized, normalized.Bounds(), decoded, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, normalized); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	l.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
	if err := l.pdf.Error(); err != nil {
		return nil, fmt.Errorf("register image: %w", err)
	}

	img := &pdfImage{name: name, widthPx: float64(bounds.Dx()), heightPx: float64(bounds.Dy())}
	l.images[name] = img
	return img, nil
}
