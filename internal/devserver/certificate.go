package devserver

import (
	"bytes"
	"fmt"
	"strings"
)

// Certificate is the content printed on a participation certificate
type Certificate struct {
	VolunteerName    string
	EventName        string
	OrganizationName string
	Date             string
	Hours            float64
	Code             string
}

// Lines returns the text lines of the certificate, top to bottom
func (c Certificate) Lines() []string {
	return []string{
		"Certificate of Participation",
		"",
		"This certifies that",
		c.VolunteerName,
		fmt.Sprintf("completed %s hours of service at", strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", c.Hours), "0"), ".")),
		c.EventName,
		fmt.Sprintf("organized by %s on %s", c.OrganizationName, c.Date),
		"",
		"Certificate code: " + c.Code,
	}
}

// renderCertificate writes a single-page PDF using the built-in Helvetica font
func renderCertificate(cert Certificate) []byte {
	var content bytes.Buffer
	content.WriteString("BT\n")
	y := 720
	for i, line := range cert.Lines() {
		size := 14
		if i == 0 {
			size = 24
		}
		fmt.Fprintf(&content, "/F1 %d Tf\n1 0 0 1 72 %d Tm\n(%s) Tj\n", size, y, pdfEscape(line))
		y -= 32
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

// pdfEscape escapes a string for a PDF literal and drops non-Latin text
func pdfEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '(' || r == ')' || r == '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case r < 32 || r > 126:
			b.WriteRune('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
