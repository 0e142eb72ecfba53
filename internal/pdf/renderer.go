// Package pdf renders story text into a downloadable document styled like
// the web client: dark pages, right-to-left text, and a branding watermark
// in the footer.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Watermark is stamped into the footer of every page.
const Watermark = "Generated By ASH AI"

// Options configures the renderer.
type Options struct {
	// FontPath points at a Unicode TTF capable of rendering Urdu script.
	// When empty the renderer falls back to the built-in Latin font.
	FontPath string
}

// Renderer builds PDFs from story text.
type Renderer struct {
	fontPath string
}

// NewRenderer constructs a renderer.
func NewRenderer(opts Options) *Renderer {
	return &Renderer{fontPath: strings.TrimSpace(opts.FontPath)}
}

// Render lays the text out across dark A4 pages and returns the PDF bytes.
func (r *Renderer) Render(text string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 20, 15)
	doc.SetAutoPageBreak(true, 20)

	family := "Helvetica"
	if r.fontPath != "" {
		family = "StoryFont"
		doc.AddUTF8Font(family, "", r.fontPath)
	}

	// Dark page background, painted before content on every page.
	doc.SetHeaderFunc(func() {
		w, h := doc.GetPageSize()
		doc.SetFillColor(32, 34, 41)
		doc.Rect(0, 0, w, h, "F")
	})
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont(family, "", 10)
		doc.SetTextColor(255, 255, 255)
		doc.CellFormat(0, 10, Watermark, "", 0, "L", false, 0, "")
	})

	doc.AddPage()
	doc.SetFont(family, "", 16)
	doc.SetTextColor(255, 255, 255)
	doc.SetRightMargin(15)

	for _, paragraph := range strings.Split(text, "\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			doc.Ln(6)
			continue
		}
		doc.MultiCell(0, 9, paragraph, "", "R", false)
		doc.Ln(3)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}
