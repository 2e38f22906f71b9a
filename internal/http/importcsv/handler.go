package importcsv

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Willizberc/Pexfin/internal/http/middleware"
	"github.com/Willizberc/Pexfin/internal/http/respond"
	httptx "github.com/Willizberc/Pexfin/internal/http/transaction"
	"github.com/Willizberc/Pexfin/internal/importer"
	"github.com/Willizberc/Pexfin/internal/transaction"
	"github.com/Willizberc/Pexfin/internal/validation"
)

const maxUploadBytes = 10 << 20

type Handler struct {
	importSvc *importer.Service
	txSvc     *transaction.Service
}

func NewHandler(importSvc *importer.Service, txSvc *transaction.Service) *Handler {
	return &Handler{
		importSvc: importSvc,
		txSvc:     txSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/banks", h.banks)
	r.Post("/", h.importCSV)
}

type entryDTO struct {
	Date        time.Time            `json:"date"`
	Description string               `json:"description"`
	Category    transaction.Category `json:"category"`
	Amount      int64                `json:"amount"`
}

type importResponse struct {
	Imported     int               `json:"imported"`
	Transactions []httptx.Response `json:"transactions"`
	Duplicates   []entryDTO        `json:"duplicates"`
	Balance      int64             `json:"balance"`
}

func (h *Handler) banks(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, h.importSvc.Banks())
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var p validation.Problems

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		p.Add("file", "must be a multipart upload")
		respond.Error(w, r, p.Err())

		return
	}

	bank := importer.Bank(r.FormValue("bank"))
	p.Require("bank", string(bank))

	file, _, err := r.FormFile("file")
	if err != nil {
		p.Add("file", "is required")
	} else {
		defer file.Close()
	}

	if err := p.Err(); err != nil {
		respond.Error(w, r, err)
		return
	}

	entries, err := h.importSvc.Import(bank, file)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	result, err := h.txSvc.ImportBatch(r.Context(), middleware.MustSession(r).UserID, entries)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusCreated, toImportResponse(result))
}

func toImportResponse(result *transaction.ImportResult) importResponse {
	resp := importResponse{
		Imported:     len(result.Imported),
		Transactions: httptx.ToResponseList(result.Imported),
		Duplicates:   make([]entryDTO, 0, len(result.Duplicates)),
		Balance:      result.Balance,
	}

	for _, e := range result.Duplicates {
		resp.Duplicates = append(resp.Duplicates, entryDTO{
			Date:        e.Date,
			Description: e.Description,
			Category:    e.Category,
			Amount:      e.Amount,
		})
	}

	return resp
}
