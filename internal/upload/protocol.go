package upload

import (
	"context"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Protocol codes sent to the client over the transfer channel.
const (
	codeReady    = 101 // next block number announced, send the block
	codeDone     = 200 // terminal: upload finalized
	codeConflict = 401 // terminal: another transfer holds the lock
	codeNotFound = 404 // terminal: session missing or expired
	codeOversize = 414 // terminal: more bytes than declared
)

// message is a JSON control frame on the transfer channel.
type message struct {
	Code            int    `json:"code"`
	Block           int64  `json:"block,omitempty"`
	Detail          string `json:"detail,omitempty"`
	UUID            string `json:"uuid,omitempty"`
	RevocationToken string `json:"revocation_token,omitempty"`
}

// readLimitSlack is how far past the declared remainder a single frame may
// run and still be read, so the oversize check can answer with a proper
// terminal frame. Larger frames are rejected by the websocket layer before
// they are buffered.
const readLimitSlack = 64 << 10

// transfer outcomes
type outcome int

const (
	// client went away (or an I/O error); checkpoint and leave the
	// session resumable
	outcomeSuspend outcome = iota
	// all declared bytes received
	outcomeComplete
	// the client sent more bytes than declared
	outcomeOversize
	// the session ttl lapsed mid-transfer
	outcomeExpired
)

// Transfer drives the block exchange for one session on an accepted
// websocket connection. It owns the terminal protocol message; the caller
// only closes the connection afterwards.
//
// A client disconnect is not a failure: the current position is
// checkpointed and the lock released, so a reconnect with the same token
// resumes from the last committed block boundary.
func (s *Service) Transfer(ctx context.Context, conn *websocket.Conn, token string) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if ErrSessionNotFound.Has(err) {
			s.send(conn, message{Code: codeNotFound, Detail: "Session does not exist"})
		} else {
			s.log.Error("session lookup failed", zap.Error(err))
		}
		return
	}

	locked, err := s.sessions.Lock(ctx, token)
	if err != nil {
		s.log.Error("session lock failed", zap.Error(err))
		return
	}
	if !locked {
		s.send(conn, message{Code: codeConflict, Detail: "Another upload is already in progress"})
		return
	}

	result := s.receiveBlocks(ctx, conn, sess)

	switch result {
	case outcomeSuspend:
		if err := s.sessions.Checkpoint(ctx, token, sess.Remaining, sess.Block); err != nil {
			s.log.Error("session checkpoint failed", zap.Error(err))
		}

	case outcomeExpired:
		if err := s.Abort(ctx, token, "expired"); err != nil {
			s.log.Error("session abort failed", zap.Error(err))
		}
		s.send(conn, message{Code: codeNotFound, Detail: "Session expired"})

	case outcomeOversize:
		if err := s.Abort(ctx, token, "oversize"); err != nil {
			s.log.Error("session abort failed", zap.Error(err))
		}
		s.send(conn, message{Code: codeOversize, Detail: "Uploaded more data than declared"})

	case outcomeComplete:
		id, revocation, err := s.Finalize(ctx, sess)
		if err != nil {
			s.log.Error("finalize failed", zap.Error(err))
			if ErrUnrecoverable.Has(err) {
				s.send(conn, message{Code: codeNotFound, Detail: "Session expired"})
				return
			}
			// the data is back in the partial area; a reconnect retries
			// the finalization with zero bytes remaining
			if cperr := s.sessions.Checkpoint(ctx, token, sess.Remaining, sess.Block); cperr != nil {
				s.log.Error("session checkpoint failed", zap.Error(cperr))
			}
			return
		}
		s.send(conn, message{Code: codeDone, UUID: id, RevocationToken: revocation})
	}
}

// receiveBlocks appends incoming blocks to the partial blob until the
// declared size is reached, mutating sess.Remaining and sess.Block as it
// goes. Each successful block refreshes the session ttl.
func (s *Service) receiveBlocks(ctx context.Context, conn *websocket.Conn, sess *Session) outcome {
	if sess.Remaining == 0 {
		return outcomeComplete
	}
	if sess.Remaining < 0 {
		return outcomeOversize
	}

	w, err := s.blobs.AppendPartial(ctx, sess.Token)
	if err != nil {
		s.log.Error("partial blob open failed", zap.Error(err))
		return outcomeSuspend
	}
	// the partial must be flushed to disk before the lock is released or
	// the blob is promoted
	defer func() {
		if err := w.Close(); err != nil {
			s.log.Error("partial blob close failed", zap.Error(err))
		}
	}()

	for sess.Remaining > 0 {
		if err := conn.WriteJSON(message{Code: codeReady, Block: sess.Block}); err != nil {
			return outcomeSuspend
		}

		conn.SetReadLimit(sess.Remaining + readLimitSlack)
		kind, block, err := conn.ReadMessage()
		if err != nil {
			return outcomeSuspend
		}
		if kind != websocket.BinaryMessage {
			// stray text frame; re-announce the same block
			continue
		}

		if _, err := w.Write(block); err != nil {
			s.log.Error("partial blob write failed", zap.Error(err))
			return outcomeSuspend
		}
		sess.Remaining -= int64(len(block))
		sess.Block++

		if sess.Remaining < 0 {
			return outcomeOversize
		}

		alive, err := s.sessions.Refresh(ctx, sess.Token, s.sessionTTL)
		if err != nil {
			s.log.Error("session refresh failed", zap.Error(err))
			return outcomeSuspend
		}
		if !alive {
			return outcomeExpired
		}
	}
	return outcomeComplete
}

func (s *Service) send(conn *websocket.Conn, msg message) {
	if err := conn.WriteJSON(msg); err != nil {
		s.log.Debug("terminal message not delivered", zap.Int("code", msg.Code), zap.Error(err))
	}
}
