// Package auth provides JWT verification helpers.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Verifier validates bearer tokens and extracts user/role claims.
// Modes: dev (token is "user:role", no verification) and hmac (HS256 JWT,
// the scheme the dashboard issues).
type Verifier struct {
	Mode       string
	HMACSecret []byte
	RoleClaim  string
	UserClaim  string
}

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   string // admin, manager, viewer
}

func (p Principal) IsManager() bool { return p.Role == "manager" || p.Role == "admin" }

func NewVerifierFromEnv() *Verifier {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE")))
	if mode == "" {
		mode = "dev"
	}
	return &Verifier{
		Mode:       mode,
		HMACSecret: []byte(os.Getenv("AUTH_HMAC_SECRET")),
		RoleClaim:  envOr("AUTH_ROLE_CLAIM", "role"),
		UserClaim:  envOr("AUTH_USER_CLAIM", "sub"),
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// Verify checks the token and returns its principal.
func (v *Verifier) Verify(token string) (Principal, error) {
	if v.Mode == "dev" {
		user, role, ok := strings.Cut(token, ":")
		if !ok {
			return Principal{}, errors.New("invalid dev token; expected user:role")
		}
		return Principal{UserID: user, Role: strings.ToLower(role)}, nil
	}
	if v.Mode != "hmac" {
		return Principal{}, fmt.Errorf("unsupported auth mode %q", v.Mode)
	}

	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return Principal{}, errors.New("invalid JWT")
	}
	headerJSON, err := b64urlDecode(segs[0])
	if err != nil {
		return Principal{}, err
	}
	payloadJSON, err := b64urlDecode(segs[1])
	if err != nil {
		return Principal{}, err
	}
	sig, err := b64urlDecode(segs[2])
	if err != nil {
		return Principal{}, err
	}

	var hdr struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerJSON, &hdr); err != nil {
		return Principal{}, err
	}
	if hdr.Alg != "HS256" {
		return Principal{}, fmt.Errorf("unsupported alg %q", hdr.Alg)
	}
	mac := hmac.New(sha256.New, v.HMACSecret)
	mac.Write([]byte(segs[0] + "." + segs[1]))
	if !hmac.Equal(mac.Sum(nil), sig) {
		return Principal{}, errors.New("bad signature")
	}

	var claims map[string]any
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return Principal{}, err
	}
	if exp, ok := claims["exp"].(float64); ok && time.Now().Unix() > int64(exp) {
		return Principal{}, errors.New("token expired")
	}
	user, _ := claims[v.UserClaim].(string)
	role, _ := claims[v.RoleClaim].(string)
	if role == "" {
		role = "viewer"
	}
	return Principal{UserID: user, Role: strings.ToLower(role)}, nil
}

func b64urlDecode(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }
