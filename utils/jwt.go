package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionTokenIssuer = "newspaper"

// SessionClaims binds a cookie to a server-side session id.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SignSessionID issues the cookie value for a session.
func SignSessionID(secret, sessionID string, expiresAt time.Time) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			Issuer:    sessionTokenIssuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionID validates a cookie value and returns the session id it carries.
func ParseSessionID(secret, tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(sessionTokenIssuer))
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", errors.New("invalid session claims")
	}
	return claims.Subject, nil
}
