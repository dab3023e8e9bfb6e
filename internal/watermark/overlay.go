package watermark

import (
	"bytes"
	"fmt"
	"math"
	"strings"
)

// RenderOverlay produces a single-page PDF sized exactly to the given
// page dimensions, containing the tiled grid of the mark text rotated
// to the page diagonal, the corner annotation block, and the
// low-opacity forensic token. Output is byte-for-byte reproducible
// for identical inputs.
func (m *Marker) RenderOverlay(mark Mark, pageWidth, pageHeight float64) ([]byte, error) {
	if pageWidth <= 0 || pageHeight <= 0 {
		return nil, fmt.Errorf("%w: invalid page dimensions %gx%g", ErrRender, pageWidth, pageHeight)
	}

	content := m.renderContent(mark, pageWidth, pageHeight)
	return buildOverlayPDF(pageWidth, pageHeight, m.cfg.Opacity, content), nil
}

// renderContent emits the overlay's content stream operators.
func (m *Marker) renderContent(mark Mark, w, h float64) string {
	var b strings.Builder

	angle := math.Atan2(h, w)
	cos := math.Cos(angle)
	sin := math.Sin(angle)

	gridFont := float64(m.cfg.FontSize)
	smallFont := float64(m.cfg.SmallFontSize)

	lines := []string{
		mark.Text,
		fmt.Sprintf("%s - %s", mark.Text, mark.Timestamp.Format("20060102")),
		"Downloaded: " + mark.Text,
	}

	stepX := w / float64(m.cfg.GridColumns)
	stepY := h / float64(m.cfg.GridRows)

	for col := 0; col < m.cfg.GridColumns; col++ {
		for row := 0; row < m.cfg.GridRows; row++ {
			tx := float64(col)*stepX + stepX/2
			ty := float64(row)*stepY + stepY/2

			fmt.Fprintf(&b, "q\n%s %s %s %s %s %s cm\n/GSg gs\n%s %s %s rg\n",
				num(cos), num(sin), num(-sin), num(cos), num(tx), num(ty),
				num(m.cfg.ColorRed), num(m.cfg.ColorGreen), num(m.cfg.ColorBlue))

			for i, line := range lines {
				// Approximate centering; exact Helvetica metrics
				// are not worth carrying for a deterrence mark.
				x := -estimateWidth(line, gridFont) / 2
				y := 10 + float64(i)*15
				fmt.Fprintf(&b, "BT\n/Fb %s Tf\n%s %s Td\n(%s) Tj\nET\n",
					num(gridFont), num(x), num(y), escapeText(line))
			}

			b.WriteString("Q\n")
		}
	}

	// Corner annotation block, slightly more visible than the grid.
	fmt.Fprintf(&b, "q\n/GSc gs\n0 0 0 rg\n")
	fmt.Fprintf(&b, "BT\n/Fn %s Tf\n30 30 Td\n(%s) Tj\nET\n",
		num(smallFont), escapeText("Downloaded by: "+mark.Text))
	fmt.Fprintf(&b, "BT\n/Fn %s Tf\n30 15 Td\n(%s) Tj\nET\n",
		num(smallFont), escapeText("Date: "+mark.Timestamp.Format("2006-01-02 15:04:05")))

	if mark.DownloadID != "" && w > 200 {
		fmt.Fprintf(&b, "BT\n/Fn %s Tf\n%s %s Td\n(%s) Tj\nET\n",
			num(smallFont), num(w-200), num(h-20), escapeText("ID: "+mark.ShortID()))
	}
	b.WriteString("Q\n")

	if token := mark.ForensicToken(); token != "" {
		fmt.Fprintf(&b, "q\n/GSf gs\n0 0 0 rg\nBT\n/Fn 8 Tf\n%s 10 Td\n(SEC:%s) Tj\nET\nQ\n",
			num(w-100), token)
	}

	return b.String()
}

// buildOverlayPDF assembles a minimal single-page PDF around the
// content stream: catalog, page tree, one page with font and graphics
// state resources, and a correct cross-reference table.
func buildOverlayPDF(w, h, gridOpacity float64, content string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] "+
			"/Resources << /Font << /Fb 4 0 R /Fn 5 0 R >> "+
			"/ExtGState << /GSg 6 0 R /GSc 7 0 R /GSf 8 0 R >> >> "+
			"/Contents 9 0 R >>", num(w), num(h)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Type /ExtGState /ca %s /CA %s >>", num(gridOpacity), num(gridOpacity)),
		"<< /Type /ExtGState /ca 0.6 /CA 0.6 >>",
		"<< /Type /ExtGState /ca 0.1 /CA 0.1 >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, 0, len(objects)+1)
	for i, body := range objects {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	offsets = append(offsets, buf.Len())
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
		len(objects)+1, len(content), content)

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefOffset)

	return buf.Bytes()
}

// estimateWidth approximates rendered text width using an average
// Helvetica glyph width of half the font size.
func estimateWidth(text string, fontSize float64) float64 {
	return float64(len(text)) * fontSize * 0.5
}

// escapeText escapes the characters with special meaning inside PDF
// string literals.
func escapeText(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// num formats a PDF numeric operand, trimming trailing zeros so the
// output stays compact and stable.
func num(f float64) string {
	s := fmt.Sprintf("%.4f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
