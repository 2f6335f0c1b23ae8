package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrWeakSecret   = errors.New("jwt secret must be at least 32 characters")
)

const minSecretLength = 32

const (
	useAccess  = "access"
	useRefresh = "refresh"
)

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Use    string `json:"use"`
	jwt.RegisteredClaims
}

// TokenPair is what a successful login or refresh hands back to the client.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// JWTService signs and verifies HS256 tokens for one issuer. Access and
// refresh tokens carry a "use" claim and are not interchangeable.
type JWTService struct {
	secretKey  []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewJWTService(secretKey, issuer string, accessTTL, refreshTTL time.Duration) (*JWTService, error) {
	if len(secretKey) < minSecretLength {
		return nil, ErrWeakSecret
	}
	return &JWTService{
		secretKey:  []byte(secretKey),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

func (s *JWTService) IssuePair(userID, email, role string) (*TokenPair, error) {
	access, accessExp, err := s.sign(Claims{UserID: userID, Email: email, Role: role, Use: useAccess}, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.sign(Claims{UserID: userID, Use: useRefresh}, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *JWTService) sign(claims Claims, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAccess returns the claims of a valid access token.
func (s *JWTService) ParseAccess(token string) (*Claims, error) {
	return s.parse(token, useAccess)
}

// ParseRefresh returns the user id carried by a valid refresh token.
func (s *JWTService) ParseRefresh(token string) (string, error) {
	claims, err := s.parse(token, useRefresh)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *JWTService) parse(token, use string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Use != use || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
