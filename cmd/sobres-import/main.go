// Command sobres-import ingests bank data from disk: saved notification
// emails (HTML) or CSV exports. It writes straight into the configured
// database through the same ingestion pipeline the API uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"sobres/internal/backend"
	"sobres/internal/cli"
	"sobres/internal/core"
	"sobres/internal/importer"
	"sobres/internal/services"
)

func main() {
	var (
		accountID = flag.Int64("account", 0, "default account id for rows without a routing hint")
		format    = flag.String("format", "email", "input format: email or csv")
		subject   = flag.String("subject", "", "email subject when the file does not carry a Subject: line")

		dateCol   = flag.String("date-col", "Fecha", "csv: date column name")
		payeeCol  = flag.String("payee-col", "Descripción", "csv: payee column name")
		amountCol = flag.String("amount-col", "", "csv: single signed amount column")
		inCol     = flag.String("amount-in-col", "", "csv: deposits column")
		outCol    = flag.String("amount-out-col", "", "csv: charges column")
		invert    = flag.Bool("invert", false, "csv: flip the sign of the amount column")
		headerRow = flag.Int("header-row", -1, "csv: header row index, -1 to auto-detect")
	)
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	if *accountID == 0 {
		*accountID = cfg.DefaultAccountID
	}
	if *accountID == 0 {
		logger.Error("No account: pass -account or set DEFAULT_ACCOUNT_ID")
		os.Exit(1)
	}
	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] file...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx := context.Background()
	be, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open backend", "error", err)
		os.Exit(1)
	}
	defer be.Cleanup()

	ingestor := services.NewIngestor(be.Store, be.Events)
	runID := uuid.NewString()
	logger.Info("Import run started",
		"run_id", runID, "format", *format, "files", flag.NArg(), "account_id", *accountID)

	var total services.BatchReport
	for _, path := range flag.Args() {
		var (
			dtos []core.TransactionDTO
			err  error
		)
		switch *format {
		case "email":
			dtos, err = parseEmailFile(path, *subject, logger)
		case "csv":
			dtos, err = parseCSVFile(path, importer.Mapping{
				HeaderRow:    *headerRow,
				DateCol:      *dateCol,
				PayeeCol:     *payeeCol,
				AmountCol:    *amountCol,
				AmountInCol:  *inCol,
				AmountOutCol: *outCol,
				InvertAmount: *invert,
			}, logger)
		default:
			logger.Error("Unknown format", "format", *format)
			os.Exit(2)
		}
		if err != nil {
			logger.Error("Failed to parse file", "run_id", runID, "file", path, "error", err)
			total.Failed++
			continue
		}

		report, err := ingestor.IngestBatch(ctx, *accountID, dtos)
		if err != nil {
			logger.Error("Ingestion aborted", "run_id", runID, "file", path, "error", err)
			os.Exit(1)
		}
		logger.Info("File ingested",
			"run_id", runID, "file", path,
			"imported", report.Imported, "duplicated", report.Duplicated, "failed", report.Failed)
		total.Imported += report.Imported
		total.Duplicated += report.Duplicated
		total.Failed += report.Failed
	}

	logger.Info("Import run finished",
		"run_id", runID,
		"imported", total.Imported, "duplicated", total.Duplicated, "failed", total.Failed)
}

// parseEmailFile reads a saved notification email. A leading "Subject: "
// line in the file wins over the -subject flag.
func parseEmailFile(path, fallbackSubject string, logger *slog.Logger) ([]core.TransactionDTO, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	body := string(data)
	subject := fallbackSubject
	if first, rest, found := strings.Cut(body, "\n"); found && strings.HasPrefix(first, "Subject:") {
		subject = strings.TrimSpace(strings.TrimPrefix(first, "Subject:"))
		body = rest
	}
	if subject == "" {
		logger.Warn("No subject for email file, parser cannot dispatch", "file", path)
	}

	parser := importer.NewBancoChile(logger)
	return parser.Parse(subject, body)
}

func parseCSVFile(path string, mapping importer.Mapping, logger *slog.Logger) ([]core.TransactionDTO, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if mapping.HeaderRow < 0 {
		rows, err := importer.ReadRows(f)
		if err != nil {
			return nil, err
		}
		mapping.HeaderRow = importer.DetectHeaderRow(rows)
		logger.Info("Detected header row", "file", path, "row", mapping.HeaderRow)
		if _, err := f.Seek(0, 0); err != nil {
			return nil, err
		}
	}

	csvImporter, err := importer.NewCSVFile(mapping, logger)
	if err != nil {
		return nil, err
	}
	dtos, skipped, err := csvImporter.Parse(f)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Info("Skipped unparseable rows", "file", path, "skipped", skipped)
	}
	return dtos, nil
}
