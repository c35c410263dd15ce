package writer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/insightdelivered/statement-ledger/internal/ledger"
)

// JSONWriter writes the whole document as one JSON object.
type JSONWriter struct {
	Indent bool
}

// WriteToFile writes the document to a JSON file at the given path.
func (w *JSONWriter) WriteToFile(path string, doc ledger.Document) error {
	return writeFile(path, doc, w)
}

// Write encodes the document to out.
func (w *JSONWriter) Write(out io.Writer, doc ledger.Document) error {
	enc := json.NewEncoder(out)
	if w.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
