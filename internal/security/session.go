package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SpaceshipxDev/super-tribble/internal/domain"
)

// TokenVersion is the current session token format version.
const TokenVersion = "v1"

// SessionCodec issues and verifies stateless session tokens of the form
//
//	version.username.issuedAtMillis.signature
//
// where signature = hex(HMAC-SHA256(secret, "version.username.issuedAtMillis")).
// There is no server-side session store; a token stays valid until the cookie
// carrying it expires or the signing secret rotates.
type SessionCodec struct {
	secret    []byte
	allowList *domain.AllowList
}

// NewSessionCodec creates a codec signing with secret and accepting only
// usernames on the allow-list.
func NewSessionCodec(secret string, allowList *domain.AllowList) *SessionCodec {
	return &SessionCodec{
		secret:    []byte(secret),
		allowList: allowList,
	}
}

// Issue builds a signed token binding username to the current time. The result
// is a plain dot-separated string safe for an HTTP cookie value.
func (c *SessionCodec) Issue(username string) string {
	return c.issueAt(username, time.Now())
}

func (c *SessionCodec) issueAt(username string, at time.Time) string {
	payload := fmt.Sprintf("%s.%s.%d", TokenVersion, username, at.UnixMilli())
	return payload + "." + c.sign(payload)
}

// Parse verifies token and returns the bound username. Any failure (empty
// token, wrong field count, unknown version, username outside the allow-list,
// signature mismatch) reports ok=false; callers must treat that identically
// to an absent cookie.
func (c *SessionCodec) Parse(token string) (username string, ok bool) {
	if token == "" {
		return "", false
	}
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", false
	}
	version, user, millis, sig := parts[0], parts[1], parts[2], parts[3]
	if version != TokenVersion {
		return "", false
	}
	if !c.allowList.Contains(user) {
		return "", false
	}
	if _, err := strconv.ParseInt(millis, 10, 64); err != nil {
		return "", false
	}
	payload := version + "." + user + "." + millis
	if !hmac.Equal([]byte(c.sign(payload)), []byte(sig)) {
		return "", false
	}
	return user, true
}

func (c *SessionCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
