package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"sobres/internal/core"
)

// Mapping tells the CSV importer which columns hold what. Column references
// are header names. Either AmountCol (single signed column) or the
// AmountInCol/AmountOutCol pair (separate deposit and charge columns) must
// be set.
type Mapping struct {
	HeaderRow int

	DateCol  string
	PayeeCol string

	AmountCol    string
	AmountInCol  string
	AmountOutCol string

	// InvertAmount flips the sign of a single amount column, for card
	// exports that print charges as positive numbers.
	InvertAmount bool
}

func (m Mapping) Validate() error {
	if m.DateCol == "" {
		return fmt.Errorf("%w: date column", core.ErrMissingReference)
	}
	if m.AmountCol == "" && m.AmountInCol == "" && m.AmountOutCol == "" {
		return fmt.Errorf("%w: amount column", core.ErrMissingReference)
	}
	return nil
}

// CSVFile parses bank CSV exports using a column mapping. Rows that fail to
// parse are skipped and counted, never fatal: bank exports routinely carry
// summary rows, blank lines and decorative headers.
type CSVFile struct {
	mapping Mapping
	logger  *slog.Logger
}

func NewCSVFile(mapping Mapping, logger *slog.Logger) (*CSVFile, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	return &CSVFile{
		mapping: mapping,
		logger:  logger.With("component", "csv_importer"),
	}, nil
}

var headerKeywords = []string{
	"fecha", "date", "monto", "amount", "descripcion", "descripción",
	"description", "cargo", "abono", "retiro", "deposito",
}

// DetectHeaderRow scans the first rows and returns the index of the row that
// looks most like a header, by keyword hits.
func DetectHeaderRow(rows [][]string) int {
	best, bestHits := 0, 0
	limit := len(rows)
	if limit > 50 {
		limit = 50
	}
	for i := 0; i < limit; i++ {
		text := strings.ToLower(strings.Join(rows[i], " "))
		hits := 0
		for _, k := range headerKeywords {
			if strings.Contains(text, k) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}
	return best
}

// ReadRows reads every record, sniffing ';' as the delimiter when the first
// line carries more semicolons than commas (common in Chilean exports).
func ReadRows(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	content := string(data)

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if firstLine, _, ok := strings.Cut(content, "\n"); ok || firstLine != "" {
		if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
			reader.Comma = ';'
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

// Parse converts the export into transaction DTOs. It returns the parsed
// movements plus the count of rows skipped as unparseable.
func (c *CSVFile) Parse(r io.Reader) ([]core.TransactionDTO, int, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, 0, err
	}
	if c.mapping.HeaderRow >= len(rows) {
		return nil, 0, fmt.Errorf("header row %d beyond end of file", c.mapping.HeaderRow)
	}

	header := rows[c.mapping.HeaderRow]
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	var (
		out     []core.TransactionDTO
		skipped int
	)
	for _, row := range rows[c.mapping.HeaderRow+1:] {
		dto, ok := c.parseRow(row, cols)
		if !ok {
			skipped++
			continue
		}
		out = append(out, dto)
	}
	return out, skipped, nil
}

func (c *CSVFile) parseRow(row []string, cols map[string]int) (core.TransactionDTO, bool) {
	date, ok := parseDayFirst(field(row, cols, c.mapping.DateCol))
	if !ok {
		return core.TransactionDTO{}, false
	}

	var amount core.Money
	if c.mapping.AmountCol != "" {
		amount = cleanAmount(field(row, cols, c.mapping.AmountCol))
		if c.mapping.InvertAmount {
			amount = -amount
		}
	} else {
		in := cleanAmount(field(row, cols, c.mapping.AmountInCol))
		out := cleanAmount(field(row, cols, c.mapping.AmountOutCol))
		amount = in.Abs() - out.Abs()
	}
	if amount == 0 {
		return core.TransactionDTO{}, false
	}

	payee := "Sin descripción"
	if c.mapping.PayeeCol != "" {
		if v := strings.TrimSpace(field(row, cols, c.mapping.PayeeCol)); v != "" {
			payee = v
		}
	}

	return core.TransactionDTO{
		Date:     date,
		Payee:    payee,
		Amount:   amount,
		Memo:     "Importado manual",
		ImportID: DedupID(date, payee, amount),
	}, true
}

func field(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

var dayFirstLayouts = []string{
	"02/01/2006", "2/1/2006", "02-01-2006", "2006-01-02",
}

func parseDayFirst(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dayFirstLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return core.Day(d), true
		}
	}
	return time.Time{}, false
}

// cleanAmount tolerates the "1 / 0" installment notation some card exports
// use by taking the part before the slash, then parses CLP formatting.
func cleanAmount(s string) core.Money {
	if before, _, found := strings.Cut(s, "/"); found {
		s = before
	}
	m, err := core.ParseAmount(s)
	if err != nil {
		return 0
	}
	return m
}
