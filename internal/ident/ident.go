// Package ident generates public file identifiers and secret tokens.
// Identifiers are short, drawn from a URL-safe alphabet, and must be
// unpredictable so that private resources cannot be enumerated; every
// character comes from crypto/rand.
package ident

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/zeebo/errs"
)

// DefaultAlphabet is the set of characters usable in identifiers. All of
// them survive a URL path segment unescaped.
const DefaultAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ$-_.+!*'(,"

// retriesPerLength bounds collision retries before the id space is widened
// by one character. With a 72-character alphabet exhausting even one round
// means the space at that length is effectively saturated.
const retriesPerLength = 16

// maxWiden caps how many characters Allocate may add beyond the configured
// length before giving up.
const maxWiden = 8

// ErrSpaceExhausted is returned when no free identifier could be found
// even after widening the id space.
var ErrSpaceExhausted = errs.Class("identifier space exhausted")

// ExistsFunc reports whether an identifier is already live.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// Allocator draws collision-free identifiers over a fixed alphabet.
type Allocator struct {
	alphabet string
	size     int
}

// NewAllocator returns an Allocator producing ids of the given starting
// length. An empty alphabet falls back to DefaultAlphabet.
func NewAllocator(alphabet string, size int) *Allocator {
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	return &Allocator{alphabet: alphabet, size: size}
}

// Allocate returns an identifier for which exists reports false. On
// repeated collisions the candidate length grows by one character, so the
// allocator cannot livelock as the live-id population approaches the size
// of the space.
func (a *Allocator) Allocate(ctx context.Context, exists ExistsFunc) (string, error) {
	for length := a.size; length <= a.size+maxWiden; length++ {
		for attempt := 0; attempt < retriesPerLength; attempt++ {
			id, err := a.random(length)
			if err != nil {
				return "", err
			}
			taken, err := exists(ctx, id)
			if err != nil {
				return "", err
			}
			if !taken {
				return id, nil
			}
		}
	}
	return "", ErrSpaceExhausted.New("after %d characters", a.size+maxWiden)
}

func (a *Allocator) random(length int) (string, error) {
	max := big.NewInt(int64(len(a.alphabet)))
	id := make([]byte, length)
	for i := range id {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("draw id character: %w", err)
		}
		id[i] = a.alphabet[n.Int64()]
	}
	return string(id), nil
}

// HexToken returns a hex-encoded secret of n random bytes, used for
// session tokens.
func HexToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// URLToken returns a URL-safe base64 secret of n random bytes, used for
// revocation tokens.
func URLToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
