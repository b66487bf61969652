package report

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/guillermoBallester/strata/internal/core/domain"
)

const timestampLayout = "20060102_150405"

// Writer persists analysis results under one output directory.
type Writer struct {
	dir     string
	formats []Format
	logger  *slog.Logger
}

// NewWriter returns a Writer for dir. Nil formats select DefaultFormats.
func NewWriter(dir string, formats []Format, logger *slog.Logger) *Writer {
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	return &Writer{dir: dir, formats: formats, logger: logger}
}

// WriteRun writes every database of run and returns the created paths.
// A database that fails to write does not stop the others; the first
// error is returned after all have been attempted.
func (w *Writer) WriteRun(run *domain.RunResult) ([]string, error) {
	var (
		paths    []string
		firstErr error
	)
	for pair := run.Databases.Oldest(); pair != nil; pair = pair.Next() {
		written, err := w.WriteDatabase(pair.Value)
		paths = append(paths, written...)
		if err != nil {
			w.logger.Error("writing report failed",
				slog.String("db.namespace", pair.Key),
				slog.String("error.message", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return paths, firstErr
}

// WriteDatabase writes the configured formats for one database.
func (w *Writer) WriteDatabase(db *domain.DatabaseResult) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	prefix := safeName(db.Name)
	ts := db.StartedAt.Format(timestampLayout)
	var paths []string

	for _, format := range w.formats {
		switch format {
		case FormatJSON:
			path := filepath.Join(w.dir, fmt.Sprintf("%s_profile_%s.json", prefix, ts))
			if err := writeFile(path, func(out io.Writer) error { return EncodeJSON(out, db) }); err != nil {
				return paths, err
			}
			paths = append(paths, path)

		case FormatMarkdown:
			path := filepath.Join(w.dir, fmt.Sprintf("%s_report_%s.md", prefix, ts))
			if err := writeFile(path, func(out io.Writer) error { return RenderMarkdown(out, db) }); err != nil {
				return paths, err
			}
			paths = append(paths, path)

		case FormatCSV:
			written, err := w.writeValueCSVs(db, prefix)
			paths = append(paths, written...)
			if err != nil {
				return paths, err
			}

		case FormatXLSX:
			path := filepath.Join(w.dir, fmt.Sprintf("%s_profile_%s.xlsx", prefix, ts))
			if err := writeWorkbook(path, db); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}

	w.logger.Info("report written",
		slog.String("db.namespace", db.Name),
		slog.Int("files", len(paths)),
		slog.String("dir", w.dir),
	)
	return paths, nil
}

// writeValueCSVs exports every field enumerated in full.
func (w *Writer) writeValueCSVs(db *domain.DatabaseResult, prefix string) ([]string, error) {
	var paths []string
	for tp := db.Tables.Oldest(); tp != nil; tp = tp.Next() {
		for fp := tp.Value.Fields.Oldest(); fp != nil; fp = fp.Next() {
			fa := fp.Value
			if fa.Retention == nil || fa.Retention.Tag != domain.RetainFull {
				continue
			}
			name := fmt.Sprintf("%s_%s_%s_values.csv", prefix, safeName(tp.Key), safeName(fa.Name))
			path := filepath.Join(w.dir, name)
			if err := writeFile(path, func(out io.Writer) error { return EncodeValuesCSV(out, fa) }); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func writeWorkbook(path string, db *domain.DatabaseResult) error {
	f, err := BuildWorkbook(db)
	if err != nil {
		return fmt.Errorf("building workbook: %w", err)
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
