package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenTypeAccess marks tokens accepted on secured routes.
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks tokens only accepted by the refresh and logout endpoints.
	TokenTypeRefresh = "refresh"
)

var (
	errUnexpectedSigningMethod = errors.New("unexpected signing method")
	errInvalidToken            = errors.New("invalid token")
	errWrongTokenType          = errors.New("wrong token type")
)

// Claims represents JWT claims.
type Claims struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTService creates a new JWT service with the given secret and lifetimes.
func NewJWTService(secret string, accessTTL, refreshTTL time.Duration) *JWTService {
	return &JWTService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Secret returns the HMAC key, used by the bearer middleware.
func (s *JWTService) Secret() []byte { return s.secret }

// RefreshTTL is the lifetime of refresh tokens.
func (s *JWTService) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *JWTService) sign(userID uint, email, tokenType string, ttl time.Duration) (tokenID, token string, err error) {
	now := s.now()
	tokenID = generateTokenID()
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return tokenID, token, err
}

// GenerateAccessToken generates a new access token for the user. Every access
// token carries a jti so logout can blacklist it.
func (s *JWTService) GenerateAccessToken(userID uint, email string) (string, error) {
	_, token, err := s.sign(userID, email, TokenTypeAccess, s.accessTTL)
	return token, err
}

// GenerateRefreshToken generates a new refresh token for the user.
// The refresh token ID is returned separately for storage in Redis.
func (s *JWTService) GenerateRefreshToken(userID uint, email string) (tokenID string, token string, err error) {
	return s.sign(userID, email, TokenTypeRefresh, s.refreshTTL)
}

// ValidateToken validates a JWT token of any type and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.KeyFunc)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

// ValidateRefreshToken validates tokenString and requires it to be a refresh
// token with a jti.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh || claims.ID == "" {
		return nil, errWrongTokenType
	}
	return claims, nil
}

// KeyFunc resolves the signing key and rejects non-HMAC tokens.
func (s *JWTService) KeyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errUnexpectedSigningMethod
	}
	return s.secret, nil
}

// RemainingTTL is how long claims stay valid from now. Zero when expired.
func (s *JWTService) RemainingTTL(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	d := claims.ExpiresAt.Sub(s.now())
	if d < 0 {
		return 0
	}
	return d
}

func generateTokenID() string {
	return uuid.New().String()
}
