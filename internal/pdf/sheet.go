package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/radius-gateway/radius-gateway/internal/db/models"
)

const (
	pageWidth   = 612 // US Letter, 72 dpi points
	pageHeight  = 792
	marginLeft  = 50
	topBaseline = 742
	fontSize    = 10
	lineHeight  = 14
	// linesPerPage keeps the last baseline above the bottom margin.
	linesPerPage = 49
)

// SheetRenderer renders a plain Courier credential sheet, one row per user.
type SheetRenderer struct {
	now func() time.Time
}

// NewSheetRenderer creates the built-in credential sheet renderer
func NewSheetRenderer() *SheetRenderer {
	return &SheetRenderer{now: time.Now}
}

// Render produces the PDF document for the batch.
func (r *SheetRenderer) Render(_ context.Context, batch *models.RadiusBatch, credentials []models.BatchCredential) (io.Reader, error) {
	if batch == nil {
		return nil, fmt.Errorf("batch is required")
	}

	lines := []string{
		fmt.Sprintf("Credential sheet: %s", batch.Name),
		fmt.Sprintf("Generated: %s", r.now().UTC().Format("2006-01-02 15:04 UTC")),
	}
	if batch.ExpirationDate != nil {
		lines = append(lines, fmt.Sprintf("Accounts expire: %s", batch.ExpirationDate.UTC().Format("2006-01-02")))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("%-32s %s", "USERNAME", "PASSWORD"),
		strings.Repeat("-", 64),
	)
	for _, cred := range credentials {
		lines = append(lines, fmt.Sprintf("%-32s %s", cred.Username, cred.Password))
	}

	return bytes.NewReader(buildDocument(lines)), nil
}

// buildDocument assembles a minimal PDF 1.4 file: catalog, page tree, one
// Courier font object, and one content stream per page. Object numbers are
// assigned in emission order so the xref table can be written in a single
// pass.
func buildDocument(lines []string) []byte {
	var pages [][]string
	for start := 0; start < len(lines); start += linesPerPage {
		end := start + linesPerPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, lines[start:end])
	}
	if len(pages) == 0 {
		pages = [][]string{{""}}
	}

	// Object layout: 1 catalog, 2 page tree, 3 font, then page/content pairs.
	const fontObj = 3
	pageObj := func(i int) int { return 4 + i*2 }
	contentObj := func(i int) int { return 5 + i*2 }
	totalObjs := 3 + len(pages)*2

	var kids []string
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", pageObj(i)))
	}

	var buf bytes.Buffer
	offsets := make([]int, totalObjs+1)

	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	buf.WriteString("%PDF-1.4\n")
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	writeObj(fontObj, "<< /Type /Font /Subtype /Type1 /BaseFont /Courier >>")

	for i, pageLines := range pages {
		stream := contentStream(pageLines)
		writeObj(pageObj(i), fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			pageWidth, pageHeight, fontObj, contentObj(i)))
		offsets[contentObj(i)] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
			contentObj(i), len(stream), stream)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", totalObjs+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= totalObjs; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", totalObjs+1, xrefStart)

	return buf.Bytes()
}

// contentStream renders lines top-down from the first baseline using the
// T* next-line operator.
func contentStream(lines []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "BT\n/F1 %d Tf\n%d TL\n%d %d Td\n", fontSize, lineHeight, marginLeft, topBaseline)
	for i, line := range lines {
		if i > 0 {
			b.WriteString("T*\n")
		}
		fmt.Fprintf(&b, "(%s) Tj\n", escapeString(line))
	}
	b.WriteString("ET")
	return b.String()
}

// escapeString escapes the three characters with meaning inside PDF literal
// strings.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	s = strings.ReplaceAll(s, ")", `\)`)
	return s
}
