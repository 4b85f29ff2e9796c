// Package file reads bank ledger exports from .xlsx and .csv files.
package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"finreport/internal/core"
	"finreport/internal/ledger"
	"finreport/internal/log"

	"github.com/xuri/excelize/v2"
)

// Source loads a ledger export from disk on every call.
type Source struct {
	path   string
	logger *log.Logger
}

var _ ledger.Source = (*Source)(nil)

// New returns a source for path. The file type is chosen by extension.
func New(path string, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Source{path: path, logger: logger.WithComponent(log.ComponentLedger)}
}

// Path returns the file this source reads.
func (s *Source) Path() string { return s.path }

// Load reads and parses the file. Rows with malformed amounts are skipped
// and logged.
func (s *Source) Load(ctx context.Context) (core.Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := ReadRows(s.path)
	if err != nil {
		return nil, err
	}
	l, issues, err := ledger.ParseRows(rows)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	for _, issue := range issues {
		s.logger.WarnContext(ctx, "Skipping ledger row",
			log.FieldFile, s.path,
			log.FieldRow, issue.Line,
			log.FieldError, issue.Error())
	}
	s.logger.DebugContext(ctx, "Ledger file loaded",
		log.FieldFile, s.path,
		log.FieldRows, len(l),
		"skipped", len(issues))
	return l, nil
}

// ReadRows returns the raw cell matrix of a ledger file, header first.
func ReadRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return readCSV(f)
	default:
		return nil, fmt.Errorf("%w: %s", ledger.ErrUnsupported, path)
	}
}

// readXLSX reads cell values unformatted so amounts like -1,411.40 arrive as
// -1411.4. Numeric cells carrying a date format are rendered as
// "2006-01-02 15:04:05".
func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	dates := dateStyles{f: f, known: map[int]bool{}}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		dates.date1904 = *props.Date1904
	}
	for r, row := range rows {
		for c, v := range row {
			serial, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil || !dates.isDate(sheet, cell) {
				continue
			}
			if t, err := excelize.ExcelDateToTime(serial, dates.date1904); err == nil {
				row[c] = t.Round(time.Second).Format(time.DateTime)
			}
		}
	}
	return rows, nil
}

// dateStyles remembers which style ids carry a date or time number format.
type dateStyles struct {
	f        *excelize.File
	date1904 bool
	known    map[int]bool
}

func (d dateStyles) isDate(sheet, cell string) bool {
	id, err := d.f.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return false
	}
	if v, ok := d.known[id]; ok {
		return v
	}
	style, err := d.f.GetStyle(id)
	isDate := err == nil && style != nil && isDateFormat(style.NumFmt, style.CustomNumFmt)
	d.known[id] = isDate
	return isDate
}

// isDateFormat reports whether a built-in format id or a custom format code
// renders a number as a date or time.
func isDateFormat(id int, custom *string) bool {
	if custom == nil {
		return (id >= 14 && id <= 22) || (id >= 27 && id <= 36) || (id >= 45 && id <= 47) || (id >= 50 && id <= 58)
	}
	var b strings.Builder
	quoted, escaped, bracket := false, false, false
	for _, r := range strings.ToLower(*custom) {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			bracket = true
		case r == ']':
			bracket = false
		case bracket:
			// [h], [mm] and [ss] are elapsed time; colours and locales are not.
			if r == 'h' || r == 'm' || r == 's' {
				b.WriteRune(r)
			}
		default:
			b.WriteRune(r)
		}
	}
	return strings.ContainsAny(b.String(), "ydhms")
}

// readCSV accepts both comma and semicolon separated exports, choosing the
// separator that occurs more often in the header line.
func readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if bytes.Count(head, []byte{';'}) > bytes.Count(head, []byte{','}) {
		reader.Comma = ';'
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}
