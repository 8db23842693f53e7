package service

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"support-desk/internal/domain"
)

const cookieIssuer = "support-desk"

var ErrCookieInvalid = errors.New("session cookie invalid")

// CookieSigner firma el id de sesión que viaja en la cookie para detectar valores adulterados.
type CookieSigner struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewCookieSigner(secret string) *CookieSigner {
	return &CookieSigner{
		secret: []byte(secret),
		issuer: cookieIssuer,
		now:    time.Now,
	}
}

func (s *CookieSigner) Sign(session domain.Session) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrCookieInvalid
	}
	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse devuelve el id de sesión contenido en value si la firma y la expiración son válidas.
func (s *CookieSigner) Parse(value string) (string, error) {
	if len(s.secret) == 0 || strings.TrimSpace(value) == "" {
		return "", ErrCookieInvalid
	}
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(value, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", ErrCookieInvalid
	}
	if !validSessionID(claims.ID) {
		return "", ErrCookieInvalid
	}
	return claims.ID, nil
}

func validSessionID(id string) bool {
	if len(id) != base64.RawURLEncoding.EncodedLen(sessionIDBytes) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil
}
