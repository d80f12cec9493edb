// Package signature implements spec §4.5's HMAC-SHA256 envelope shared
// by every API boundary: body-signed (Service API, webhook out),
// URL-signed (User API), plus the admin auth header name (the argon2
// admin-secret comparison itself lives in config.VerifyAdminSecret).
// Every failure mode collapses to one generic rejection so a response
// never hints at which check failed.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ocrch/engine/internal/apierr"
)

// maxClockSkew is the 300s freshness window spec §4.5 and §5 both name.
const maxClockSkew = 300 * time.Second

// SignatureHeader is the header name carrying "<unix_ts>.<sig>" on
// every signed request and webhook delivery.
const SignatureHeader = "Ocrch-Signature"

// SignedURLHeader carries the verbatim URL a User API request's
// signature was computed over.
const SignedURLHeader = "Ocrch-Signed-Url"

// AdminAuthHeader carries the admin bearer secret in plaintext; the
// server compares it against an argon2 hash (internal/config).
const AdminAuthHeader = "Ocrch-Admin-Authorization"

// SignBody produces the Ocrch-Signature header value for a body-signed
// request or outbound webhook delivery: HMAC-SHA256 over
// "{unix_ts}.{body}" keyed by secret.
func SignBody(secret []byte, body []byte, now time.Time) string {
	ts := now.Unix()
	signed := fmt.Sprintf("%d.%s", ts, body)
	return encodeHeader(ts, hmacSHA256(secret, []byte(signed)))
}

// VerifyBody checks a body-signed request: recompute the HMAC over
// exactly the received body bytes, compare in constant time, then
// check the timestamp is within the freshness window. Every failure
// returns apierr.ErrBadSignature — the caller never learns which check
// failed (spec §4.5).
func VerifyBody(secret []byte, header string, body []byte, now time.Time) error {
	ts, sig, err := parseHeader(header)
	if err != nil {
		return apierr.ErrBadSignature
	}
	signed := fmt.Sprintf("%d.%s", ts, body)
	if !hmac.Equal(sig, hmacSHA256(secret, []byte(signed))) {
		return apierr.ErrBadSignature
	}
	if !fresh(ts, now) {
		return apierr.ErrBadSignature
	}
	return nil
}

// SignURL produces the Ocrch-Signature header value for a URL-signed
// request: HMAC-SHA256 over "{signed_url}.{unix_ts}".
func SignURL(secret []byte, signedURL string, now time.Time) string {
	ts := now.Unix()
	signed := fmt.Sprintf("%s.%d", signedURL, ts)
	return encodeHeader(ts, hmacSHA256(secret, []byte(signed)))
}

// VerifyURL checks a URL-signed request: recompute the HMAC over the
// verbatim signed URL and timestamp, check freshness, then check the
// URL's origin is in allowedOrigins (spec §4.5 "User API").
func VerifyURL(secret []byte, sigHeader, signedURL string, allowedOrigins []string, now time.Time) error {
	ts, sig, err := parseHeader(sigHeader)
	if err != nil {
		return apierr.ErrBadSignature
	}
	signed := fmt.Sprintf("%s.%d", signedURL, ts)
	if !hmac.Equal(sig, hmacSHA256(secret, []byte(signed))) {
		return apierr.ErrBadSignature
	}
	if !fresh(ts, now) {
		return apierr.ErrBadSignature
	}
	origin, err := originOf(signedURL)
	if err != nil {
		return apierr.ErrBadSignature
	}
	if !originAllowed(origin, allowedOrigins) {
		return apierr.ErrBadSignature
	}
	return nil
}

func hmacSHA256(secret, message []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return mac.Sum(nil)
}

func encodeHeader(ts int64, sig []byte) string {
	return fmt.Sprintf("%d.%s", ts, base64.RawURLEncoding.EncodeToString(sig))
}

var errMalformedHeader = errors.New("malformed signature header")

func parseHeader(header string) (int64, []byte, error) {
	parts := strings.SplitN(header, ".", 2)
	if len(parts) != 2 {
		return 0, nil, errMalformedHeader
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, nil, errMalformedHeader
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return 0, nil, errMalformedHeader
	}
	return ts, sig, nil
}

func fresh(ts int64, now time.Time) bool {
	delta := now.Unix() - ts
	if delta < 0 {
		delta = -delta
	}
	return time.Duration(delta)*time.Second <= maxClockSkew
}

func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errMalformedHeader
	}
	return u.Scheme + "://" + u.Host, nil
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == origin {
			return true
		}
	}
	return false
}

// secretsEqualConstantTime reports whether a and b are equal, compared
// in constant time. It is unexported; the admin-secret check itself is
// config.VerifyAdminSecret, which verifies against the argon2 hash.
func secretsEqualConstantTime(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
