package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer              = "mship"
	DefaultAccessExpiry = 15 * time.Minute
)

// Claims defines the JWT payload for admin access tokens.
type Claims struct {
	AccountID int64 `json:"account_id,string"`
	jwt.RegisteredClaims
}

// TokenService signs and validates HMAC access tokens. Tokens are minted out
// of band (see mship-cli token) and only validated by the server.
type TokenService struct {
	secret       []byte
	accessExpiry time.Duration
}

// NewTokenService creates a TokenService with the given HMAC secret. A
// non-positive expiry uses DefaultAccessExpiry.
func NewTokenService(secret string, accessExpiry time.Duration) *TokenService {
	if accessExpiry <= 0 {
		accessExpiry = DefaultAccessExpiry
	}
	return &TokenService{
		secret:       []byte(secret),
		accessExpiry: accessExpiry,
	}
}

// AccessExpiry returns how long generated tokens stay valid.
func (ts *TokenService) AccessExpiry() time.Duration {
	return ts.accessExpiry
}

// GenerateAccessToken creates a signed JWT for the given account.
func (ts *TokenService) GenerateAccessToken(accountID int64) (string, error) {
	now := time.Now()
	claims := Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken parses and validates a JWT, returning the claims.
func (ts *TokenService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.AccountID <= 0 {
		return nil, fmt.Errorf("token has no account")
	}
	return claims, nil
}
