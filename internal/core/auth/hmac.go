package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

// Request signing headers.
const (
	HeaderKeyID     = "X-Alertkeeper-Key-Id"
	HeaderTimestamp = "X-Alertkeeper-Timestamp"
	HeaderSignature = "X-Alertkeeper-Signature"
)

// ComputeHMAC computes HMAC-SHA256 over "<unix timestamp>.<body>".
// Binding the timestamp prevents replaying a captured body later.
func ComputeHMAC(secret []byte, timestamp int64, body []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(strconv.FormatInt(timestamp, 10)))
	h.Write([]byte{'.'})
	h.Write(body)
	return h.Sum(nil)
}

// VerifyHMAC compares signatures in constant time.
func VerifyHMAC(expected, computed []byte) bool {
	return hmac.Equal(expected, computed)
}

// SignRequest sets the signing headers on req for body.
func SignRequest(req *http.Request, keyID string, secret []byte, body []byte, now time.Time) {
	ts := now.Unix()
	req.Header.Set(HeaderKeyID, keyID)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, hex.EncodeToString(ComputeHMAC(secret, ts, body)))
}
