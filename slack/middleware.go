package slack

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxAge rejects requests whose timestamp is older than Slack's own
// replay window.
const DefaultMaxAge = 5 * time.Minute

// Verifier checks that requests were signed by Slack with the app's
// signing secret.
type Verifier struct {
	SigningKey string
	MaxAge     time.Duration
	Now        func() time.Time
}

// AuthCheck verifies requests with the default replay window.
func AuthCheck(signingKey string) func(handler http.Handler) http.Handler {
	return (&Verifier{SigningKey: signingKey}).Middleware
}

func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timestamp := r.Header.Get("X-Slack-Request-Timestamp")

		if !v.fresh(timestamp) {
			logrus.Warnf("Stale or missing request timestamp %q", timestamp)

			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		b, err := io.ReadAll(r.Body)
		if err != nil {
			logrus.Errorf("Could not parse request body: %s", err)

			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		expected := "v0=" + requestHmacHash(b, timestamp, v.SigningKey)

		if !hmac.Equal([]byte(r.Header.Get("X-Slack-Signature")), []byte(expected)) {
			logrus.Warn("Invalid request signature")

			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(b)) // Body already consumed, must re-initialize

		next.ServeHTTP(w, r)
	})
}

func (v *Verifier) fresh(timestamp string) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}

	maxAge := v.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	age := now().Sub(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}

	return age <= maxAge
}

func requestHmacHash(payload []byte, timestamp string, signingKey string) string {
	hs := fmt.Sprintf("v0:%s:%s", timestamp, string(payload))

	hash := hmac.New(sha256.New, []byte(signingKey))
	hash.Write([]byte(hs))
	s := hash.Sum(nil)

	return hex.EncodeToString(s)
}

// Sign produces the headers Slack would send for payload. Used by tests and
// local tooling.
func Sign(signingKey string, payload []byte, at time.Time) (timestamp, signature string) {
	timestamp = strconv.FormatInt(at.Unix(), 10)
	return timestamp, "v0=" + requestHmacHash(payload, timestamp, signingKey)
}
