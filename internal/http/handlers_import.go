package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"sobres/internal/importer"
)

// maxImportSize bounds uploaded statements. Personal bank exports are tiny;
// anything bigger is a mistake.
const maxImportSize = 10 << 20

// handleImportCSV ingests a mapped CSV export. The file arrives as multipart
// form data with the mapping alongside it as form fields.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}

	accountID, err := strconv.ParseInt(r.FormValue("account_id"), 10, 64)
	if err != nil || accountID <= 0 {
		badRequest(w, "invalid account_id")
		return
	}

	mapping := importer.Mapping{
		DateCol:      r.FormValue("date_col"),
		PayeeCol:     r.FormValue("payee_col"),
		AmountCol:    r.FormValue("amount_col"),
		AmountInCol:  r.FormValue("amount_in_col"),
		AmountOutCol: r.FormValue("amount_out_col"),
		InvertAmount: r.FormValue("invert_amount") == "true",
	}
	if v := r.FormValue("header_row"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "invalid header_row")
			return
		}
		mapping.HeaderRow = n
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "missing file")
		return
	}
	defer file.Close()

	csvImporter, err := importer.NewCSVFile(mapping, slog.Default())
	if err != nil {
		writeError(w, r, err)
		return
	}
	dtos, skipped, err := csvImporter.Parse(file)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	report, err := s.ingestor.IngestBatch(r.Context(), accountID, dtos)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"imported":   report.Imported,
		"duplicated": report.Duplicated,
		"failed":     report.Failed + skipped,
	})
}
