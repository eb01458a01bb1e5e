package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dataacquisition/das/internal/acquisition"
	"github.com/dataacquisition/das/internal/api/models"
	"github.com/dataacquisition/das/internal/api/response"
)

// CallbackHandler receives progress reports from the downloader and the metadata parser.
type CallbackHandler struct {
	service *acquisition.Service
	logger  zerolog.Logger
}

// NewCallbackHandler creates a new CallbackHandler.
func NewCallbackHandler(service *acquisition.Service, logger zerolog.Logger) *CallbackHandler {
	return &CallbackHandler{service: service, logger: logger}
}

// Downloader handles POST /rest/das/callbacks/downloader.
func (h *CallbackHandler) Downloader(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, acquisition.SourceDownloader)
}

// Metadata handles POST /rest/das/callbacks/metadata.
func (h *CallbackHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, acquisition.SourceMetadataParser)
}

func (h *CallbackHandler) apply(w http.ResponseWriter, r *http.Request, source acquisition.CallbackSource) {
	var body models.CallbackReport
	if !decodeBody(w, r, &body) {
		return
	}

	cb := acquisition.Callback{
		Source: source,
		ID:     body.ID,
		Status: acquisition.CallbackStatus(body.Status),
	}
	if _, err := h.service.ApplyCallback(r.Context(), cb); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	response.NoContent(w, r)
}
