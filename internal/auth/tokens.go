package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers expired, malformed and tampered tokens.
var ErrInvalidToken = errors.New("invalid token")

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Config holds the signing material for both token families. Access and
// refresh tokens are signed with separate secrets so one cannot stand in for
// the other.
type Config struct {
	AccessSecret  []byte
	AccessTTL     time.Duration
	RefreshSecret []byte
	RefreshTTL    time.Duration
}

// Identity is the subset of account state embedded in access tokens.
type Identity struct {
	ID       string
	Username string
	Email    string
}

// AccessClaims is the payload carried by short-lived access tokens.
type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// RefreshClaims carries only the subject; refresh tokens hold no profile data.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// Issuer signs and verifies the platform's session tokens.
type Issuer struct {
	config Config
	now    func() time.Time
}

func NewIssuer(config Config) (*Issuer, error) {
	if len(config.AccessSecret) == 0 {
		return nil, errors.New("access token secret is required")
	}
	if len(config.RefreshSecret) == 0 {
		return nil, errors.New("refresh token secret is required")
	}
	if config.AccessTTL <= 0 {
		config.AccessTTL = defaultAccessTTL
	}
	if config.RefreshTTL <= 0 {
		config.RefreshTTL = defaultRefreshTTL
	}
	return &Issuer{config: config, now: time.Now}, nil
}

// AccessTTL reports the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.config.AccessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.config.RefreshTTL }

// IssueAccessToken returns a signed access token for the identity.
func (i *Issuer) IssueAccessToken(identity Identity) (string, error) {
	if identity.ID == "" {
		return "", errors.New("identity id is required")
	}
	now := i.now().UTC()
	claims := AccessClaims{
		Username: identity.Username,
		Email:    identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.config.AccessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.config.AccessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken returns a signed refresh token for the user. Each token
// carries a random jti claim: timestamps alone have second precision, and two
// identical tokens would let a rotated-out token keep working.
func (i *Issuer) IssueRefreshToken(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	tokenID, err := newTokenID()
	if err != nil {
		return "", err
	}
	now := i.now().UTC()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.config.RefreshTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.config.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

func newTokenID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	return hex.EncodeToString(raw[:]), nil
}

// VerifyAccessToken parses and validates an access token.
func (i *Issuer) VerifyAccessToken(tokenString string) (AccessClaims, error) {
	claims := AccessClaims{}
	if err := i.verify(tokenString, &claims, i.config.AccessSecret); err != nil {
		return AccessClaims{}, err
	}
	return claims, nil
}

// VerifyRefreshToken parses and validates a refresh token.
func (i *Issuer) VerifyRefreshToken(tokenString string) (RefreshClaims, error) {
	claims := RefreshClaims{}
	if err := i.verify(tokenString, &claims, i.config.RefreshSecret); err != nil {
		return RefreshClaims{}, err
	}
	return claims, nil
}

func (i *Issuer) verify(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
