package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dataacquisition/das/internal/acquisition"
	"github.com/dataacquisition/das/internal/api/models"
	"github.com/dataacquisition/das/internal/api/response"
	"github.com/dataacquisition/das/internal/kvstore"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// RequestsPath is the collection path; created requests live below it.
const RequestsPath = "/rest/das/requests"

// AcquisitionHandler handles acquisition request endpoints.
type AcquisitionHandler struct {
	service *acquisition.Service
	logger  zerolog.Logger
}

// NewAcquisitionHandler creates a new AcquisitionHandler.
func NewAcquisitionHandler(service *acquisition.Service, logger zerolog.Logger) *AcquisitionHandler {
	return &AcquisitionHandler{service: service, logger: logger}
}

// Create handles POST /rest/das/requests.
func (h *AcquisitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body models.AcquisitionRequestCreate
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := h.service.Create(r.Context(), callerFrom(r.Context()), acquisition.NewRequestInput{
		Title:         body.Title,
		OrgUUID:       body.OrgUUID,
		PublicRequest: body.PublicRequest,
		Source:        body.Source,
		Category:      body.Category,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	response.Created(w, r, RequestsPath+"/"+req.ID, toModel(req))
}

// Get handles GET /rest/das/requests/{requestId}.
func (h *AcquisitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.Get(r.Context(), callerFrom(r.Context()), chi.URLParam(r, "requestId"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toModel(req))
}

// UpdateState handles PUT /rest/das/requests/{requestId}/state.
func (h *AcquisitionHandler) UpdateState(w http.ResponseWriter, r *http.Request) {
	var body models.StateUpdate
	if !decodeBody(w, r, &body) {
		return
	}

	state, err := acquisition.ParseState(body.State)
	if err != nil {
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: "state", Message: "must be one of VALIDATED, DOWNLOADED, FINISHED, ERROR", Code: "INVALID_ENUM"},
		})
		return
	}

	req, err := h.service.UpdateState(r.Context(), callerFrom(r.Context()), chi.URLParam(r, "requestId"), state)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toModel(req))
}

// writeServiceError maps service errors onto problem responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var validationErr *acquisition.ValidationError
	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(w, r, "validation failed", validationErr.Errors)
	case errors.Is(err, acquisition.ErrInvalidCallback), errors.Is(err, acquisition.ErrInvalidState),
		errors.Is(err, acquisition.ErrInvalidKey):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, acquisition.ErrForbiddenOrg):
		response.Forbidden(w, r, "caller does not belong to the organization")
	case errors.Is(err, acquisition.ErrRequestNotFound):
		response.NotFound(w, r, "acquisition request not found")
	case errors.Is(err, acquisition.ErrInvalidTransition):
		response.Conflict(w, r, err.Error())
	case errors.Is(err, kvstore.ErrUnavailable):
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("key-value store unavailable")
		response.ServiceUnavailable(w, r, "request store is unavailable")
	case errors.Is(err, acquisition.ErrMalformedRecord):
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("malformed stored record")
		response.InternalError(w, r, "stored request could not be read")
	default:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		response.InternalError(w, r, "internal server error")
	}
}

// decodeBody decodes a JSON body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return false
	}
	return true
}

func toModel(req *acquisition.Request) models.AcquisitionRequest {
	return models.AcquisitionRequest{
		ID:            req.ID,
		OrgUUID:       req.OrgUUID,
		Title:         req.Title,
		PublicRequest: req.PublicRequest,
		Source:        req.Source,
		Category:      req.Category,
		State:         string(req.State),
	}
}
