package knowledge

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/matzehuels/recompose/pkg/errors"
)

// Extractor pulls plain text out of a document.
type Extractor interface {
	Extract(ctx context.Context, r io.ReadSeeker) (string, error)
}

// PDFExtractor reads text from PDF content streams with pdfcpu. Only text
// drawn with string operators is found; scanned pages yield nothing.
type PDFExtractor struct {
	Logger *log.Logger
}

// Extract returns the text of every page, one page per line.
func (e PDFExtractor) Extract(ctx context.Context, r io.ReadSeeker) (string, error) {
	pdf, err := api.ReadValidateAndOptimize(r, model.NewDefaultConfiguration())
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDecode, err, "read pdf")
	}

	var pages []string
	for nr := 1; nr <= pdf.PageCount; nr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		content, err := pdfcpu.ExtractPageContent(pdf, nr)
		if err != nil {
			if e.Logger != nil {
				e.Logger.Debug("skip pdf page", "page", nr, "error", err)
			}
			continue
		}
		data, err := io.ReadAll(content)
		if err != nil {
			continue
		}
		if text := textFromStream(data); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", errors.New(errors.ErrCodeDecode, "pdf has no extractable text")
	}
	return strings.Join(pages, "\n"), nil
}

var stringLiteral = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// textFromStream collects the string operands of Tj, TJ and ' operators.
func textFromStream(data []byte) string {
	var b strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range stringLiteral.FindAllSubmatch(line, -1) {
				b.WriteString(unescape(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			b.WriteByte('\n')
			for _, m := range stringLiteral.FindAllSubmatch(line, -1) {
				b.WriteString(unescape(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			b.WriteByte(' ')
		case bytes.Equal(line, []byte("T*")), bytes.Equal(line, []byte("ET")):
			b.WriteByte('\n')
		}
	}
	return normalizeSpace(b.String())
}

func unescape(raw []byte) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 == len(raw) {
			b.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			if raw[i] < '0' || raw[i] > '7' {
				b.WriteByte(raw[i])
				continue
			}
			v := 0
			for n := 0; n < 3 && i < len(raw) && raw[i] >= '0' && raw[i] <= '7'; n++ {
				v = v*8 + int(raw[i]-'0')
				i++
			}
			i--
			b.WriteByte(byte(v))
		}
	}
	return b.String()
}

// normalizeSpace collapses runs of blanks but keeps line breaks.
func normalizeSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.FieldsFunc(l, unicode.IsSpace), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
