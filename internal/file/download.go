package file

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxReadBlock bounds how many bytes one {seek, read} request may return.
const maxReadBlock = 4 << 20

// readRequest is one client frame on the ranged-download channel. A
// missing seek continues from where the previous read stopped.
type readRequest struct {
	Seek *int64 `json:"seek"`
	Read int64  `json:"read"`
}

// Raw godoc
//
//	@Summary		Get raw file data
//	@Description	Plain GET streams the blob (range requests supported); HEAD returns the size. A websocket upgrade switches to a ranged protocol: the client sends {"seek": O, "read": N} and receives one binary message of up to N bytes from offset O.
//	@Tags			files
//	@Produce		octet-stream
//	@Param			uuid	path	string	true	"file id"
//	@Success		200
//	@Failure		404	{object}	response.Detail
//	@Router			/{uuid}/raw [get]
func (h *Handler) Raw(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	rc, size, err := h.svc.OpenRaw(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer func() { _ = rc.Close() }()

	if websocket.IsWebSocketUpgrade(r) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		h.serveRanged(conn, rc, size)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, "", time.Time{}, rc)
}

// serveRanged answers {seek, read} requests until the client goes away.
func (h *Handler) serveRanged(conn *websocket.Conn, rc io.ReadSeeker, size int64) {
	var pos int64
	buf := make([]byte, maxReadBlock)

	for {
		var req readRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Seek != nil {
			pos = *req.Seek
		}
		if pos < 0 || pos > size {
			pos = size
		}

		want := req.Read
		if want < 0 {
			want = 0
		}
		if want > maxReadBlock {
			want = maxReadBlock
		}
		if remaining := size - pos; want > remaining {
			want = remaining
		}

		if _, err := rc.Seek(pos, io.SeekStart); err != nil {
			h.log.Error("blob seek failed", zap.Error(err))
			return
		}
		n, err := io.ReadFull(rc, buf[:want])
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			h.log.Error("blob read failed", zap.Error(err))
			return
		}
		pos += int64(n)

		if err := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); err != nil {
			return
		}
	}
}
