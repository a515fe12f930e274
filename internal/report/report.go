// Package report assembles markdown summaries and renders them to standalone HTML.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"lumen/internal/errors"
)

// Document is a markdown document built section by section
type Document struct {
	title string
	buf   bytes.Buffer
}

// New starts a document with a top-level title
func New(title string) *Document {
	d := &Document{title: title}
	fmt.Fprintf(&d.buf, "# %s\n\n", title)
	return d
}

// Heading adds a second-level heading
func (d *Document) Heading(text string) *Document {
	fmt.Fprintf(&d.buf, "## %s\n\n", text)
	return d
}

// Paragraph adds a paragraph of text
func (d *Document) Paragraph(format string, args ...interface{}) *Document {
	fmt.Fprintf(&d.buf, format+"\n\n", args...)
	return d
}

// Table adds a pipe table. Cells containing pipes are escaped.
func (d *Document) Table(header []string, rows [][]string) *Document {
	writeRow := func(cells []string) {
		escaped := make([]string, len(cells))
		for i, c := range cells {
			escaped[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		fmt.Fprintf(&d.buf, "| %s |\n", strings.Join(escaped, " | "))
	}
	writeRow(header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	d.buf.WriteString("\n")
	return d
}

// Image embeds an image by path relative to the rendered document
func (d *Document) Image(alt, path string) *Document {
	fmt.Fprintf(&d.buf, "![%s](%s)\n\n", alt, filepath.ToSlash(path))
	return d
}

// Markdown returns the markdown source
func (d *Document) Markdown() []byte {
	return append([]byte(nil), d.buf.Bytes()...)
}

// HTML renders the document as a complete HTML page
func (d *Document) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: d.title,
	})
	return markdown.ToHTML(d.Markdown(), p, renderer)
}

// Save writes <base>.md and <base>.html into dir and returns both paths
func (d *Document) Save(dir, base string) (string, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", errors.Wrapf(err, "failed to create report directory %s", dir)
	}
	mdPath := filepath.Join(dir, base+".md")
	htmlPath := filepath.Join(dir, base+".html")
	if err := os.WriteFile(mdPath, d.Markdown(), 0644); err != nil {
		return "", "", errors.Wrapf(err, "failed to write %s", mdPath)
	}
	if err := os.WriteFile(htmlPath, d.HTML(), 0644); err != nil {
		return "", "", errors.Wrapf(err, "failed to write %s", htmlPath)
	}
	return mdPath, htmlPath, nil
}
