package watermark_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/notevault/notevault/internal/watermark"
)

// sourcePDF builds a minimal n-page document with the given page size.
func sourcePDF(t *testing.T, n int, w, h float64) []byte {
	t.Helper()

	var objects []string
	kids := make([]string, n)
	for i := 0; i < n; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i*2)
	}

	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", joinSpace(kids), n),
	)

	for i := 0; i < n; i++ {
		pageObj := 3 + i*2
		contentObj := pageObj + 1
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Contents %d 0 R >>",
			w, h, contentObj))

		content := fmt.Sprintf("BT (page %d) Tj ET", i+1)
		objects = append(objects, fmt.Sprintf(
			"<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xref)

	return buf.Bytes()
}

func joinSpace(parts []string) string {
	var b bytes.Buffer
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

func TestPageDimensions(t *testing.T) {
	source := sourcePDF(t, 3, 612, 792)

	dims, err := watermark.PageDimensions(source)
	if err != nil {
		t.Fatalf("PageDimensions() failed: %v", err)
	}
	if len(dims) != 3 {
		t.Fatalf("PageDimensions() returned %d pages, want 3", len(dims))
	}
	for i, dim := range dims {
		if dim.Width != 612 || dim.Height != 792 {
			t.Errorf("Page %d dimensions = %gx%g, want 612x792", i+1, dim.Width, dim.Height)
		}
	}
}

func TestPageDimensions_NotPDF(t *testing.T) {
	if _, err := watermark.PageDimensions([]byte("not a pdf")); err == nil {
		t.Error("PageDimensions() succeeded on junk input")
	}
}

func TestApply_PreservesGeometry(t *testing.T) {
	m := watermark.NewMarker(testConfig(), testLogger())
	source := sourcePDF(t, 5, 612, 792)

	marked, err := m.Apply(context.Background(), source, fixedMark())
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	count, err := watermark.PageCount(marked)
	if err != nil {
		t.Fatalf("PageCount() on output failed: %v", err)
	}
	if count != 5 {
		t.Errorf("Output page count = %d, want 5", count)
	}

	dims, err := watermark.PageDimensions(marked)
	if err != nil {
		t.Fatalf("PageDimensions() on output failed: %v", err)
	}
	for i, dim := range dims {
		if dim.Width != 612 || dim.Height != 792 {
			t.Errorf("Output page %d = %gx%g, want 612x792", i+1, dim.Width, dim.Height)
		}
	}
}

func TestApply_InvalidSource(t *testing.T) {
	m := watermark.NewMarker(testConfig(), testLogger())

	if _, err := m.Apply(context.Background(), []byte("junk"), fixedMark()); err == nil {
		t.Error("Apply() succeeded on junk input")
	}
}

func TestApply_Cancelled(t *testing.T) {
	m := watermark.NewMarker(testConfig(), testLogger())
	source := sourcePDF(t, 2, 612, 792)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Apply(ctx, source, fixedMark()); err == nil {
		t.Error("Apply() succeeded with a cancelled context")
	}
}
