// internal/auth/jwt.go
package auth

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"offer-tracker/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// Owner is the subject of every token: the tracker has a single user.
const Owner = "owner"

var (
	ErrInvalidPassphrase = errors.New("invalid passphrase")
	ErrInvalidToken      = errors.New("invalid token claims")
)

type TokenService struct {
	secretKey  []byte
	passphrase []byte
	expiresIn  time.Duration
	now        func() time.Time
}

func NewTokenService(cfg config.Config) *TokenService {
	return &TokenService{
		secretKey:  []byte(cfg.JWTSecret),
		passphrase: []byte(cfg.AuthPassphrase),
		expiresIn:  cfg.JWTExpiresIn,
		now:        time.Now,
	}
}

// Login exchanges the configured passphrase for a token.
func (s *TokenService) Login(passphrase string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(passphrase), s.passphrase) != 1 {
		slog.Warn("Login rejected")
		return "", ErrInvalidPassphrase
	}
	return s.GenerateToken(Owner)
}

func (s *TokenService) GenerateToken(subject string) (string, error) {
	now := s.now()
	expTime := now.Add(s.expiresIn)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expTime),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(s.secretKey)
	if err == nil {
		slog.Info("JWT generated", "subject", subject, "expires_at", expTime.Format(time.DateTime))
	}
	return tokenStr, err
}

// ParseToken validates tokenStr and returns its subject.
func (s *TokenService) ParseToken(tokenStr string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	slog.Debug("JWT parsed successfully", "subject", claims.Subject)
	return claims.Subject, nil
}
