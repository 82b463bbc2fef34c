package file

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fbain/service/internal/auth"
	"github.com/fbain/service/internal/response"
	"github.com/fbain/service/web"
)

// Handler holds HTTP handlers for file endpoints.
type Handler struct {
	svc      *Service
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new file Handler.
func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// fail maps domain errors onto HTTP status codes.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case ErrNotFound.Has(err):
		response.NotFound(w, "File was not found.")
	case auth.ErrUnauthorized.Has(err):
		response.Unauthorized(w, "ID and token combination is invalid.")
	case ErrValidation.Has(err):
		response.BadRequest(w, err.Error())
	default:
		h.log.Error("file request failed", zap.Error(err))
		response.InternalError(w)
	}
}

// Page godoc
//
//	@Summary		Get HTML for file download and decryption
//	@Tags			files
//	@Produce		html
//	@Param			uuid	path	string	true	"file id"
//	@Success		200
//	@Failure		404	{object}	response.Detail
//	@Router			/{uuid} [get]
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")
	if _, err := h.svc.Get(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(web.Viewer)
}

// Meta godoc
//
//	@Summary		Get file metadata
//	@Tags			files
//	@Produce		json
//	@Param			uuid	path	string	true	"file id"
//	@Success		200	{object}	object
//	@Failure		404	{object}	response.Detail
//	@Router			/{uuid}/meta [get]
func (h *Handler) Meta(w http.ResponseWriter, r *http.Request) {
	meta, err := h.svc.Meta(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, json.RawMessage(meta))
}

// Delete godoc
//
//	@Summary		Delete a file
//	@Description	Requires the file's revocation token or the admin token as a bearer token.
//	@Tags			files
//	@Produce		json
//	@Security		BearerAuth
//	@Param			uuid	path	string	true	"file id"
//	@Success		200
//	@Failure		401	{object}	response.Detail
//	@Failure		404	{object}	response.Detail
//	@Router			/{uuid} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")
	if err := h.svc.Delete(r.Context(), id, auth.BearerToken(r)); err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, struct{}{})
}

type expirationBody struct {
	ExpiresAt int64 `json:"expires_at" example:"1735689600"`
}

// GetExpiry godoc
//
//	@Summary		Get file expiration
//	@Description	Returns the unix timestamp at which the file expires, or -1 for indefinite storage.
//	@Tags			files
//	@Produce		json
//	@Param			uuid	path	string	true	"file id"
//	@Success		200	{object}	expirationBody
//	@Failure		404	{object}	response.Detail
//	@Router			/{uuid}/expire [get]
func (h *Handler) GetExpiry(w http.ResponseWriter, r *http.Request) {
	at, err := h.svc.Expiry(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, expirationBody{ExpiresAt: at})
}

// SetExpiry godoc
//
//	@Summary		Set file expiration
//	@Description	Sets the expiration timestamp; any negative value means indefinite. Requires the revocation or admin token.
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			uuid	path	string			true	"file id"
//	@Param			body	body	expirationBody	true	"expiration timestamp"
//	@Success		200	{object}	expirationBody
//	@Failure		400	{object}	response.Detail
//	@Failure		401	{object}	response.Detail
//	@Failure		404	{object}	response.Detail
//	@Router			/{uuid}/expire [put]
func (h *Handler) SetExpiry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	var body expirationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.svc.SetExpiry(r.Context(), id, auth.BearerToken(r), body.ExpiresAt); err != nil {
		h.fail(w, err)
		return
	}

	at, err := h.svc.Expiry(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, expirationBody{ExpiresAt: at})
}
