package upload

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fbain/service/internal/response"
)

// Handler holds HTTP handlers for the upload endpoints.
type Handler struct {
	svc      *Service
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new upload Handler.
func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log,
		upgrader: websocket.Upgrader{
			// uploads are anonymous and cross-origin by design of the
			// public instance
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

type sessionTokenBody struct {
	SessionToken string `json:"session_token" example:"9f2b4c0d8a6e1f3b5d7c9e0a2b4d6f81"`
}

// Open godoc
//
//	@Summary		Create a new session for uploading
//	@Description	Stages metadata and a declared content length, returning a session token for the transfer channel.
//	@Tags			upload
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenRequest	true	"file metadata and declared length"
//	@Success		200		{object}	sessionTokenBody
//	@Failure		400		{object}	response.Detail
//	@Failure		422		{object}	response.Detail
//	@Router			/upload [post]
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.ContentLength < 0 {
		response.BadRequest(w, "content_length must not be negative")
		return
	}

	token, err := h.svc.Open(r.Context(), req)
	if err != nil {
		if ErrTooLarge.Has(err) {
			response.UnprocessableEntity(w, "File too large")
			return
		}
		h.log.Error("session open failed", zap.Error(err))
		response.InternalError(w)
		return
	}

	response.JSON(w, http.StatusOK, sessionTokenBody{SessionToken: token})
}

// Transfer godoc
//
//	@Summary		Upload file content over a websocket
//	@Description	Block-oriented duplex exchange: the server announces readiness with {code:101, block:N}, the client answers with one binary block. Terminal codes: 200 (done), 401 (lock conflict), 404 (missing/expired), 414 (oversize).
//	@Tags			upload
//	@Param			session_token	path	string	true	"session token"
//	@Router			/upload/{session_token} [get]
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "session_token")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		return
	}
	defer func() { _ = conn.Close() }()

	h.svc.Transfer(r.Context(), conn, token)
}
