// Package auth implements the trust boundary shared by every mutating
// file operation: possession of the file's revocation token or of the
// administrative override token.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/zeebo/errs"
)

// ErrUnauthorized is returned when the presented token matches neither the
// secret nor the admin override.
var ErrUnauthorized = errs.Class("unauthorized")

// Gate checks bearer tokens against per-file secrets and the configured
// admin override token.
type Gate struct {
	adminToken string
}

// NewGate creates a Gate. An empty adminToken disables the override.
func NewGate(adminToken string) *Gate {
	return &Gate{adminToken: adminToken}
}

// Verify checks presented against secret in constant time, falling back to
// the admin override. Both comparisons always run so timing does not leak
// which one matched.
func (g *Gate) Verify(presented, secret string) error {
	ownerOK := Equal(presented, secret)
	adminOK := g.VerifyAdmin(presented)
	if !ownerOK && !adminOK {
		return ErrUnauthorized.New("token mismatch")
	}
	return nil
}

// VerifyAdmin reports whether presented is the admin override token. An
// unset admin token never matches.
func (g *Gate) VerifyAdmin(presented string) bool {
	return g.adminToken != "" && Equal(presented, g.adminToken)
}

// Equal compares two tokens in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// BearerToken extracts the token from an Authorization header, accepting
// both "Bearer <token>" and a bare token value.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return header
}
