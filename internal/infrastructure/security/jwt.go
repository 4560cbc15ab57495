// Package security provides session token utilities
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// SessionClaims is the decoded content of a session token
type SessionClaims struct {
	Username  string
	SessionID string
}

// GenerateSessionToken creates a signed session token for a user. The
// session ID is encrypted into the token so it never travels in the clear.
func GenerateSessionToken(username, jwtSecret, aesKey string, ttl time.Duration) (string, string, error) {
	sessionID := GenerateULID()
	encryptedSID, err := Encrypt(sessionID, aesKey)
	if err != nil {
		return "", "", err
	}

	claims := jwt.MapClaims{
		"sub": username,
		"sid": encryptedSID,
		"iat": time.Now().UTC().Unix(),
		"exp": time.Now().UTC().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", "", err
	}

	return signed, sessionID, nil
}

// ValidateSessionToken validates a session token and returns its claims
func ValidateSessionToken(tokenString, jwtSecret, aesKey string) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	username, ok := claims["sub"].(string)
	if !ok || username == "" {
		return nil, errors.New("token missing subject")
	}

	encryptedSID, ok := claims["sid"].(string)
	if !ok {
		return nil, errors.New("token missing session id")
	}
	sessionID, err := Decrypt(encryptedSID, aesKey)
	if err != nil {
		return nil, errors.New("token session id unreadable")
	}

	return &SessionClaims{Username: username, SessionID: sessionID}, nil
}
