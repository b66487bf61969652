package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/guillermoBallester/strata/internal/core/domain"
)

// EncodeJSON writes db as indented JSON. Tables and fields keep schema order.
func EncodeJSON(w io.Writer, db *domain.DatabaseResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(db); err != nil {
		return fmt.Errorf("encoding %s result: %w", db.Name, err)
	}
	return nil
}
