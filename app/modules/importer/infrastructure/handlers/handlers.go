// Package importerhandlers exposes the import pipeline over HTTP. Handlers
// translate between JSON requests and the application service; business
// outcomes travel in the operation result envelope and are mapped to status
// codes here.
package importerhandlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	importerservice "github.com/combine-hq/combine-server/app/modules/importer/application"
	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	"github.com/combine-hq/combine-server/internal/attr"
	"github.com/combine-hq/combine-server/internal/results"
)

// ImportHandlers serves the import HTTP API.
type ImportHandlers struct {
	service importerservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewImportHandlers creates a new ImportHandlers instance.
func NewImportHandlers(service importerservice.Service, logger *slog.Logger, tracer trace.Tracer) *ImportHandlers {
	return &ImportHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

type startSessionRequest struct {
	Mode domain.ImportMode `json:"mode"`
}

func (h *ImportHandlers) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req startSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.StartSession(ctx, chi.URLParam(r, "eventID"), ActorID(ctx), req.Mode)
	h.respondResult(ctx, w, res, err, http.StatusCreated)
}

func (h *ImportHandlers) HandleResumeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.service.ResumeSession(ctx, chi.URLParam(r, "eventID"), ActorID(ctx))
	h.respondResult(ctx, w, res, err, http.StatusOK)
}

func (h *ImportHandlers) HandleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.service.DiscardDraft(ctx, chi.URLParam(r, "eventID"))
	h.respondResult(ctx, w, res, err, http.StatusOK)
}

func (h *ImportHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	res, err := h.service.GetHistory(ctx, chi.URLParam(r, "eventID"), limit)
	h.respondResult(ctx, w, res, err, http.StatusOK)
}

func (h *ImportHandlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	session, err := h.service.GetSession(ctx, sessionID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

type provideSourceRequest struct {
	Method   domain.ImportMethod `json:"method"`
	Filename string              `json:"filename,omitempty"`
	// Payload carries file, paste, or photo bytes, base64-encoded in JSON.
	Payload  []byte `json:"payload,omitempty"`
	SheetURL string `json:"sheet_url,omitempty"`
}

func (h *ImportHandlers) HandleProvideSource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req provideSourceRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.ProvideSource(ctx, sessionID, importerservice.SourceInput{
		Method:   req.Method,
		Filename: req.Filename,
		Payload:  req.Payload,
		SheetURL: req.SheetURL,
	})
	h.respondResult(ctx, w, res, err, http.StatusOK)
}

type selectSheetRequest struct {
	SheetName string `json:"sheet_name"`
}

func (h *ImportHandlers) HandleSelectSheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req selectSheetRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.SelectSheet(ctx, sessionID, req.SheetName)
	h.respondResult(ctx, w, res, err, http.StatusOK)
}

type setMappingRequest struct {
	Column    string `json:"column"`
	TargetKey string `json:"target_key"`
}

func (h *ImportHandlers) HandleSetMapping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req setMappingRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondMutation(ctx, w, h.service.SetColumnMapping(ctx, sessionID, req.Column, req.TargetKey))
}

type editRowRequest struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

func (h *ImportHandlers) HandleEditRow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	rowID, err := strconv.Atoi(chi.URLParam(r, "rowID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid row id")
		return
	}
	var req editRowRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondMutation(ctx, w, h.service.EditRow(ctx, sessionID, rowID, req.Column, req.Value))
}

type strategyRequest struct {
	Strategy domain.MergeStrategy `json:"strategy"`
}

func (h *ImportHandlers) HandleSetRowStrategy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	rowID, err := strconv.Atoi(chi.URLParam(r, "rowID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid row id")
		return
	}
	var req strategyRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondMutation(ctx, w, h.service.SetRowStrategy(ctx, sessionID, rowID, req.Strategy))
}

func (h *ImportHandlers) HandleSetConflictDefault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req strategyRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondMutation(ctx, w, h.service.SetConflictDefault(ctx, sessionID, req.Strategy))
}

type acknowledgeRequest struct {
	Code domain.GuardCode `json:"code"`
}

func (h *ImportHandlers) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req acknowledgeRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondMutation(ctx, w, h.service.AcknowledgeGuard(ctx, sessionID, req.Code))
}

func (h *ImportHandlers) HandleBackToInput(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	h.respondMutation(ctx, w, h.service.BackToInput(ctx, sessionID))
}

func (h *ImportHandlers) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	h.respondMutation(ctx, w, h.service.CloseSession(ctx, sessionID))
}

func (h *ImportHandlers) HandlePreflight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	issues, err := h.service.Preflight(ctx, sessionID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if issues == nil {
		issues = []domain.GuardIssue{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"issues": issues})
}

func (h *ImportHandlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	res, err := h.service.Submit(ctx, sessionID)
	h.respondResult(ctx, w, res, err, http.StatusOK)
}

func (h *ImportHandlers) HandleRevert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	res, err := h.service.Revert(ctx, sessionID)
	h.respondResult(ctx, w, res, err, http.StatusOK)
}

func (h *ImportHandlers) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ImportHandlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// respondResult maps an operation result to HTTP: a success payload is the
// response body, a failure payload is written with a status derived from its
// error code.
func (h *ImportHandlers) respondResult(ctx context.Context, w http.ResponseWriter, res results.OperationResult, err error, okStatus int) {
	if err != nil {
		h.logger.ErrorContext(ctx, "Import operation failed", attr.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if res.Failure != nil {
		h.writeJSON(w, failureStatus(res.Failure), res.Failure)
		return
	}
	h.writeJSON(w, okStatus, res.Success)
}

// respondMutation maps a plain-error review mutation to HTTP.
func (h *ImportHandlers) respondMutation(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.respondError(w, err)
}

func (h *ImportHandlers) respondError(w http.ResponseWriter, err error) {
	var transition domain.ErrInvalidTransition
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &transition):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.writeError(w, http.StatusBadRequest, err.Error())
	}
}

// failureStatus derives an HTTP status from a typed failure payload.
func failureStatus(payload any) int {
	switch p := payload.(type) {
	case *importerservice.GuardFailedPayload:
		return http.StatusUnprocessableEntity
	case *domain.ImportFailedPayload:
		switch p.ErrorCode {
		case "SESSION_NOT_FOUND", "NO_DRAFT":
			return http.StatusNotFound
		case "INVALID_STEP", "SOURCE_GONE":
			return http.StatusConflict
		case "UNDO_EXPIRED":
			return http.StatusGone
		case "PARSE_ERROR", "NO_ROWS":
			return http.StatusUnprocessableEntity
		case "EVENT_REQUIRED", "INVALID_MODE", "DRAFT_CORRUPT":
			return http.StatusBadRequest
		default:
			return http.StatusInternalServerError
		}
	default:
		return http.StatusInternalServerError
	}
}

func (h *ImportHandlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", attr.Error(err))
	}
}

func (h *ImportHandlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
