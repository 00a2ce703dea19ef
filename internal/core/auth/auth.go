// Package auth provides HMAC request signing for the HTTP API and outbound webhooks.
package auth

import (
	"bytes"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTolerance is the accepted clock skew between signer and verifier.
const DefaultTolerance = 5 * time.Minute

// maxSignedBody bounds how much of a request body the middleware buffers.
const maxSignedBody = 1 << 20

// Verifier checks signed requests against a set of secrets keyed by id.
type Verifier struct {
	secrets   map[string][]byte
	tolerance time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewVerifier returns a verifier for secrets (secret_id -> secret).
func NewVerifier(secrets map[string][]byte, logger zerolog.Logger) *Verifier {
	return &Verifier{
		secrets:   secrets,
		tolerance: DefaultTolerance,
		now:       time.Now,
		logger:    logger,
	}
}

// Verify checks the signature headers of a request with the given body.
func (v *Verifier) Verify(h http.Header, body []byte) error {
	keyID := h.Get(HeaderKeyID)
	tsRaw := h.Get(HeaderTimestamp)
	sigRaw := h.Get(HeaderSignature)
	if keyID == "" && tsRaw == "" && sigRaw == "" {
		return ErrMissingSignature
	}

	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return ErrInvalidFormat
	}
	sig, err := hex.DecodeString(sigRaw)
	if err != nil || len(sig) != 32 {
		return ErrInvalidFormat
	}

	secret, ok := v.secrets[keyID]
	if !ok {
		return ErrUnknownKey
	}

	skew := v.now().Sub(time.Unix(ts, 0))
	if skew < -v.tolerance || skew > v.tolerance {
		return ErrStaleTimestamp
	}

	if !VerifyHMAC(sig, ComputeHMAC(secret, ts, body)) {
		return ErrInvalidSignature
	}
	return nil
}

// Middleware rejects requests whose signature does not verify.
// The body is buffered and restored for the next handler.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody+1))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		if len(body) > maxSignedBody {
			http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
			return
		}

		if err := v.Verify(r.Header, body); err != nil {
			v.logger.Warn().
				Err(err).
				Str("key_id", r.Header.Get(HeaderKeyID)).
				Str("path", r.URL.Path).
				Msg("request signature rejected")
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}
