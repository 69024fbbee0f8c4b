package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// BOM is written first so Excel on Windows detects UTF-8 Cyrillic text.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes one row per act item.
type CSVWriter struct {
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter that writes to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{csv: csv.NewWriter(w)}
}

// WriteHeader writes the item header row.
func (w *CSVWriter) WriteHeader() error {
	return w.csv.Write(itemColumns)
}

// WriteDocuments writes the item rows of every document.
func (w *CSVWriter) WriteDocuments(docs []Document) error {
	for _, doc := range docs {
		for _, row := range itemRows(doc) {
			if err := w.csv.Write(csvRecord(row)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *CSVWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *CSVWriter) Error() error {
	return w.csv.Error()
}

func csvRecord(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if f, ok := v.(float64); ok {
			out[i] = strconv.FormatFloat(f, 'f', 2, 64)
			continue
		}
		out[i] = cellText(v)
	}
	return out
}

// nonFilename matches characters that are not letters, digits, hyphen or underscore.
var nonFilename = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a batch or file name for use in Content-Disposition.
// Replaces disallowed runs with _, collapses underscores and truncates to
// 100 characters.
func SanitizeFilename(name string) string {
	s := nonFilename.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}
	if s == "" {
		s = "export"
	}
	return s
}

// BuildFilename returns {sanitized_name}_{YYYY-MM-DD}.{ext}.
func BuildFilename(name, ext string) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(name), time.Now().Format("2006-01-02"), ext)
}
