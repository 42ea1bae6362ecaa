package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const tokenIssuer = "studioflow"

var (
	// ErrInvalidToken is returned for malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when a token's exp is in the past.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the payload of a bearer token. Sub is the worker id.
type Claims struct {
	Sub    string `json:"sub"`
	Issuer string `json:"iss"`
	Iat    int64  `json:"iat"`
	Exp    int64  `json:"exp,omitempty"`
}

var tokenHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

// SignToken issues a token for workerID valid for ttl. A non-positive ttl
// issues a token without expiry.
func SignToken(secret, workerID string, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("sign token: secret is empty")
	}
	if strings.TrimSpace(workerID) == "" {
		return "", errors.New("sign token: worker id is empty")
	}
	claims := Claims{Sub: workerID, Issuer: tokenIssuer, Iat: now.Unix()}
	if ttl > 0 {
		claims.Exp = now.Add(ttl).Unix()
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	data := tokenHeader + "." + base64.RawURLEncoding.EncodeToString(payload)
	return data + "." + hmacSign(secret, data), nil
}

// VerifyToken checks the signature and expiry of token and returns its claims.
func VerifyToken(secret, token string, now time.Time) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	expected := hmacSign(secret, parts[0]+"."+parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return nil, ErrInvalidToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Sub == "" {
		return nil, ErrInvalidToken
	}
	if claims.Exp != 0 && now.Unix() > claims.Exp {
		return nil, ErrTokenExpired
	}
	return &claims, nil
}

func hmacSign(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
