package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fbain/service/internal/auth"
	"github.com/fbain/service/internal/response"
)

// Handler holds HTTP handlers for status and size-cap endpoints.
type Handler struct {
	svc         *Service
	gate        *auth.Gate
	statusToken string
	log         *zap.Logger
}

// NewHandler creates a new admin Handler. statusToken, when non-empty,
// gates GET /status.
func NewHandler(svc *Service, gate *auth.Gate, statusToken string, log *zap.Logger) *Handler {
	return &Handler{svc: svc, gate: gate, statusToken: statusToken, log: log}
}

// HeadStatus godoc
//
//	@Summary	Liveness probe
//	@Tags		admin
//	@Success	200
//	@Router		/status [head]
func (h *Handler) HeadStatus(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Status godoc
//
//	@Summary		Aggregate file count and disk usage
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	Status
//	@Failure		401	{object}	response.Detail
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if h.statusToken != "" && !auth.Equal(auth.BearerToken(r), h.statusToken) {
		response.Unauthorized(w, "status token required")
		return
	}

	status, err := h.svc.Status(r.Context())
	if err != nil {
		h.log.Error("status scan failed", zap.Error(err))
		response.InternalError(w)
		return
	}
	response.JSON(w, http.StatusOK, status)
}

type maxFileSizeBody struct {
	Max int64 `json:"max" example:"500000000"`
}

// MaxFileSize godoc
//
//	@Summary		Get the global size cap
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	maxFileSizeBody
//	@Router			/max-filesize [get]
func (h *Handler) MaxFileSize(w http.ResponseWriter, r *http.Request) {
	max, err := h.svc.MaxFileSize(r.Context())
	if err != nil {
		h.log.Error("size cap read failed", zap.Error(err))
		response.InternalError(w)
		return
	}
	response.JSON(w, http.StatusOK, maxFileSizeBody{Max: max})
}

// SetMaxFileSize godoc
//
//	@Summary		Set a new global size cap
//	@Description	Admin only. The value accepts K/M/G/T magnitude suffixes (decimal).
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			value	path	string	true	"new cap, e.g. 10G"
//	@Success		200	{object}	maxFileSizeBody
//	@Failure		400	{object}	response.Detail
//	@Failure		401	{object}	response.Detail
//	@Router			/max-filesize/{value} [post]
func (h *Handler) SetMaxFileSize(w http.ResponseWriter, r *http.Request) {
	if !h.gate.VerifyAdmin(auth.BearerToken(r)) {
		response.Unauthorized(w, "admin token required")
		return
	}

	max, err := ParseSize(chi.URLParam(r, "value"))
	if err != nil {
		response.BadRequest(w, "Invalid max filesize")
		return
	}

	if err := h.svc.SetMaxFileSize(r.Context(), max); err != nil {
		h.log.Error("size cap write failed", zap.Error(err))
		response.InternalError(w)
		return
	}
	response.JSON(w, http.StatusOK, maxFileSizeBody{Max: max})
}
