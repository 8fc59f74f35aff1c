package auth

import (
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// SessionCookieName is the cookie carrying the signed session identifier.
const SessionCookieName = "clubhouse_session"

// CookieCodec writes and reads the session cookie. The value is the session
// identifier signed with HMAC, so a tampered cookie is treated as absent.
type CookieCodec struct {
	sc     *securecookie.SecureCookie
	maxAge int
	secure bool
}

// NewCookieCodec creates a codec whose cookies live as long as sessions do.
func NewCookieCodec(hashKey []byte, ttl time.Duration, secure bool) *CookieCodec {
	maxAge := int(ttl / time.Second)
	sc := securecookie.New(hashKey, nil)
	sc.MaxAge(maxAge)
	return &CookieCodec{sc: sc, maxAge: maxAge, secure: secure}
}

// Set writes the session cookie for sessionID.
func (cc *CookieCodec) Set(w http.ResponseWriter, sessionID string) error {
	value, err := cc.sc.Encode(SessionCookieName, sessionID)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   cc.maxAge,
		HttpOnly: true,
		Secure:   cc.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// Read returns the session identifier from the request, if a validly signed
// cookie is present.
func (cc *CookieCodec) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	var sessionID string
	if err := cc.sc.Decode(SessionCookieName, cookie.Value, &sessionID); err != nil {
		return "", false
	}
	return sessionID, sessionID != ""
}

// Clear tells the browser to drop the session cookie.
func (cc *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cc.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// DecodeSecret turns the configured secret into key material. Hex strings of
// at least 32 bytes are decoded; anything else is used as raw bytes.
func DecodeSecret(secret string) []byte {
	if b, err := hex.DecodeString(secret); err == nil && len(b) >= 32 {
		return b
	}
	return []byte(secret)
}
