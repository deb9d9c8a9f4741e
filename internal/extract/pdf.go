package extract

import (
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF pulls the embedded text of every page. A PDF whose pages carry
// no embedded text at all is assumed to be a scanned document and falls back
// to OCR.
func (e *Extractor) extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text != "" {
			pages = append(pages, text)
		}
	}

	fullText := strings.Join(pages, "\n")
	if strings.TrimSpace(fullText) == "" {
		return e.ocr(path)
	}

	return fullText, nil
}
