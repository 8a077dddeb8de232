// =============================================================================
// Refactura Builder - Review API Handlers
// =============================================================================
//
// HTTP surface for the review/upload workflow. This is a thin wrapper: all
// pipeline behavior lives in the session, which is also what the batch CLI
// drives. Artifact endpoints come in pairs, a JSON report and a file
// download, so a client can show the consolidated warning list before or
// after fetching the bytes; both run the same recompute-everything build.
//
// =============================================================================

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jcutting/facturarator/internal/cfdi"
	"github.com/jcutting/facturarator/internal/packaging"
	"github.com/jcutting/facturarator/internal/session"
	"github.com/jcutting/facturarator/internal/spreadsheet"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	zipContentType  = "application/zip"
)

// Handler serves the review API.
type Handler struct {
	registry       *Registry
	maxUploadBytes int64
}

// NewHandler creates a Handler backed by the given registry.
func NewHandler(registry *Registry, maxUploadBytes int64) *Handler {
	return &Handler{registry: registry, maxUploadBytes: maxUploadBytes}
}

// Routes mounts the session endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.createSession)

	r.Route("/{sessionID}", func(r chi.Router) {
		r.Delete("/", h.deleteSession)
		r.Post("/invoices", h.uploadInvoices)
		r.Post("/scans", h.uploadScans)
		r.Get("/records", h.listRecords)
		r.Patch("/records/{index}", h.updateRecord)
		r.Delete("/records/{index}", h.removeRecord)
		r.Put("/metadata", h.setMetadata)
		r.Get("/spreadsheet", h.downloadSpreadsheet)
		r.Get("/spreadsheet/report", h.spreadsheetReport)
		r.Get("/package", h.downloadPackage)
		r.Get("/package/report", h.packageReport)
	})
}

// =============================================================================
// RESPONSE SHAPES
// =============================================================================

type recordResponse struct {
	Index        int    `json:"index"`
	Identifier   string `json:"identifier"`
	IssuerTaxID  string `json:"issuer_tax_id"`
	TaxAmount    string `json:"tax_amount"`
	TotalAmount  string `json:"total_amount"`
	CurrencyCode string `json:"currency_code"`
	Category     string `json:"category"`
	SourceFile   string `json:"source_file"`
	ParseError   string `json:"parse_error,omitempty"`
}

func toRecordResponse(index int, rec cfdi.Record) recordResponse {
	return recordResponse{
		Index:        index,
		Identifier:   rec.Identifier,
		IssuerTaxID:  rec.IssuerTaxID,
		TaxAmount:    rec.TaxAmount.String(),
		TotalAmount:  rec.TotalAmount,
		CurrencyCode: rec.CurrencyCode,
		Category:     rec.Category,
		SourceFile:   rec.SourceFile,
		ParseError:   rec.ParseError,
	}
}

type reportResponse struct {
	Warnings []session.Warning `json:"warnings"`
	FileName string            `json:"file_name"`
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	s := h.registry.Create()

	writeJSON(w, http.StatusCreated, map[string]string{"session_id": s.ID.String()})
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	h.registry.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) *session.Session {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return nil
	}

	s, err := h.registry.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil
	}
	return s
}

// =============================================================================
// UPLOADS
// =============================================================================

func (h *Handler) uploadInvoices(w http.ResponseWriter, r *http.Request) {
	s := h.lookup(w, r)
	if s == nil {
		return
	}

	files, ok := h.multipartFiles(w, r)
	if !ok {
		return
	}

	records := make([]recordResponse, 0, len(files))
	base := len(s.Records())
	for i, f := range files {
		rec := s.AddInvoice(f.data, f.name)
		records = append(records, toRecordResponse(base+i, rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) uploadScans(w http.ResponseWriter, r *http.Request) {
	s := h.lookup(w, r)
	if s == nil {
		return
	}

	files, ok := h.multipartFiles(w, r)
	if !ok {
		return
	}

	for _, f := range files {
		s.AddScan(f.name, f.data)
	}

	writeJSON(w, http.StatusOK, map[string]int{"scan_count": s.ScanCount()})
}

type uploadedFile struct {
	name string
	data []byte
}

// multipartFiles reads every file part of the request, in part order, which
// is the upload order the matcher later relies on.
func (h *Handler) multipartFiles(w http.ResponseWriter, r *http.Request) ([]uploadedFile, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	reader, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "expected multipart upload", http.StatusBadRequest)
		return nil, false
	}

	var files []uploadedFile
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return nil, false
		}

		if part.FileName() == "" {
			continue
		}

		data, err := io.ReadAll(part)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return nil, false
		}
		files = append(files, uploadedFile{name: part.FileName(), data: data})
	}

	if len(files) == 0 {
		http.Error(w, "no files in upload", http.StatusBadRequest)
		return nil, false
	}
	return files, true
}

// =============================================================================
// REVIEW
// =============================================================================

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	s := h.lookup(w, r)
	if s == nil {
		return
	}

	records := s.Records()
	out := make([]recordResponse, 0, len(records))
	for i, rec := range records {
		out = append(out, toRecordResponse(i, rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records":    out,
		"scan_count": s.ScanCount(),
	})
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	s := h.lookup(w, r)
	if s == nil {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid record index", http.StatusBadRequest)
		return
	}

	var upd session.RecordUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.UpdateRecord(index, upd); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeRecord(w http.ResponseWriter, r *http.Request) {
	s := h.lookup(w, r)
	if s == nil {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid record index", http.StatusBadRequest)
		return
	}

	if err := s.RemoveRecord(index); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setMetadata(w http.ResponseWriter, r *http.Request) {
	s := h.lookup(w, r)
	if s == nil {
		return
	}

	var meta struct {
		RequestedPeriod string `json:"requested_period"`
		ClaimantName    string `json:"claimant_name"`
		ContactEmail    string `json:"contact_email"`
		IDLast4         string `json:"id_last4"`
	}
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.SetMetadata(spreadsheet.Metadata{
		RequestedPeriod: meta.RequestedPeriod,
		ClaimantName:    meta.ClaimantName,
		ContactEmail:    meta.ContactEmail,
		IDLast4:         meta.IDLast4,
	})

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ARTIFACTS
// =============================================================================

func (h *Handler) spreadsheetReport(w http.ResponseWriter, r *http.Request) {
	s := h.lookup(w, r)
	if s == nil {
		return
	}

	out, err := s.BuildSpreadsheet()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reportResponse{Warnings: warningsOrEmpty(out.Warnings), FileName: out.FileName})
}

func (h *Handler) downloadSpreadsheet(w http.ResponseWriter, r *http.Request) {
	s := h.lookup(w, r)
	if s == nil {
		return
	}

	out, err := s.BuildSpreadsheet()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	serveFile(w, out.FileName, xlsxContentType, out.Data)
}

func (h *Handler) packageReport(w http.ResponseWriter, r *http.Request) {
	s := h.lookup(w, r)
	if s == nil {
		return
	}

	out, err := s.BuildPackage()
	if err != nil {
		h.packageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reportResponse{Warnings: warningsOrEmpty(out.Warnings), FileName: out.FileName})
}

func (h *Handler) downloadPackage(w http.ResponseWriter, r *http.Request) {
	s := h.lookup(w, r)
	if s == nil {
		return
	}

	out, err := s.BuildPackage()
	if err != nil {
		h.packageError(w, err)
		return
	}

	serveFile(w, out.FileName, zipContentType, out.Data)
}

// packageError maps the one user-facing hard stop to a client error; the
// rest is internal.
func (h *Handler) packageError(w http.ResponseWriter, err error) {
	if errors.Is(err, packaging.ErrNoScans) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// =============================================================================
// HELPERS
// =============================================================================

func warningsOrEmpty(w []session.Warning) []session.Warning {
	if w == nil {
		return []session.Warning{}
	}
	return w
}

func serveFile(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))

	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write artifact response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
