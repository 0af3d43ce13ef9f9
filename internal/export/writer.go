// Package export writes aggregate tables to disk as CSV, JSON or XLSX so
// that charting and reporting tools can consume them.
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// Format is an output file format.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	XLSX Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", CSV:
		return CSV, nil
	case JSON:
		return JSON, nil
	case XLSX:
		return XLSX, nil
	default:
		return "", eris.Errorf("export: unknown format %q (valid: csv, json, xlsx)", s)
	}
}

// Sheet is a rectangular table of cells. Cells are strings, integers,
// floats, booleans or dates.
type Sheet struct {
	Header []string
	Rows   [][]any
}

// Writer writes sheets into a directory in one format.
type Writer struct {
	Dir    string
	Format Format
}

// NewWriter creates a Writer after validating the format name.
func NewWriter(dir, format string) (*Writer, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return &Writer{Dir: dir, Format: f}, nil
}

// Path returns the file a sheet with the given name is written to.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.Dir, SanitizeName(name)+"."+string(w.Format))
}

// WriteSheet writes a sheet and returns the file path.
func (w *Writer) WriteSheet(name string, s Sheet) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "export: create dir %s", w.Dir)
	}
	path := w.Path(name)

	var err error
	switch w.Format {
	case CSV, "":
		err = writeCSV(path, s)
	case JSON:
		err = writeJSON(path, s)
	case XLSX:
		err = writeXLSX(path, SanitizeName(name), s)
	default:
		err = eris.Errorf("export: unknown format %q", w.Format)
	}
	if err != nil {
		return "", err
	}

	zap.L().Debug("wrote sheet",
		zap.String("component", "export"),
		zap.String("path", path),
		zap.Int("rows", len(s.Rows)),
	)
	return path, nil
}

var unsafeNameRe = regexp.MustCompile(`[^a-z0-9_-]+`)

// SanitizeName lowercases a name and replaces every run of characters
// other than letters, digits, '-' and '_' with a single underscore.
func SanitizeName(name string) string {
	s := unsafeNameRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "sheet"
	}
	return s
}

// CellString renders a cell the way it appears in CSV output.
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.DateOnly)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func writeCSV(path string, s Sheet) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(s.Header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	record := make([]string, len(s.Header))
	for _, row := range s.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = CellString(row[i])
			}
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return f.Close()
}

func writeJSON(path string, s Sheet) error {
	records := make([]map[string]any, len(s.Rows))
	for i, row := range s.Rows {
		obj := make(map[string]any, len(s.Header))
		for j, h := range s.Header {
			var v any
			if j < len(row) {
				v = row[j]
			}
			if t, ok := v.(time.Time); ok {
				v = t.Format(time.DateOnly)
			}
			obj[h] = v
		}
		records[i] = obj
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal json")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// xlsx sheet names are limited to 31 characters.
const maxSheetName = 31

func writeXLSX(path, name string, s Sheet) error {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, h := range s.Header {
		header.AddCell().SetString(h)
	}
	for _, row := range s.Rows {
		r := sheet.AddRow()
		for j := range s.Header {
			cell := r.AddCell()
			if j >= len(row) {
				continue
			}
			switch x := row[j].(type) {
			case float64:
				cell.SetFloat(x)
			case int:
				cell.SetInt(x)
			case int64:
				cell.SetInt64(x)
			case bool:
				cell.SetBool(x)
			default:
				cell.SetString(CellString(x))
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
