package elevation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenExpiry is the lifetime of an elevation token. Deliberately
// short: the token only proves that second-factor verification happened a
// moment ago.
const DefaultTokenExpiry = 15 * time.Minute

// TokenValue holds a signed token and its expiration
type TokenValue struct {
	Token     string
	ExpiresAt time.Time
}

// Claims carried by an elevation token. The mfa_verified claim is the whole
// point of the token; everything else is standard JWT bookkeeping.
type Claims struct {
	MfaVerified bool `json:"mfa_verified"`
	jwt.RegisteredClaims
}

// TokenIssuer produces the short-lived assertion handed to the session
// layer after a successful second-factor verification.
type TokenIssuer interface {
	// IssueElevationToken signs a token asserting that userID completed
	// MFA verification just now
	IssueElevationToken(userID string) (TokenValue, error)

	// ParseToken parses and validates a previously issued token
	ParseToken(tokenStr string) (*jwt.Token, error)
}

// JwtTokenIssuer implements TokenIssuer using HS256-signed JWTs
type JwtTokenIssuer struct {
	Secret   string
	Issuer   string
	Audience string
	Expiry   time.Duration
}

// JwtTokenIssuerOption configures a JwtTokenIssuer
type JwtTokenIssuerOption func(*JwtTokenIssuer)

// WithExpiry overrides the default token lifetime
func WithExpiry(expiry time.Duration) JwtTokenIssuerOption {
	return func(i *JwtTokenIssuer) {
		i.Expiry = expiry
	}
}

// NewJwtTokenIssuer creates a new JwtTokenIssuer
func NewJwtTokenIssuer(secret, issuer, audience string, opts ...JwtTokenIssuerOption) *JwtTokenIssuer {
	i := &JwtTokenIssuer{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
		Expiry:   DefaultTokenExpiry,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IssueElevationToken signs a token scoped to {userID, mfa_verified: true}
func (i *JwtTokenIssuer) IssueElevationToken(userID string) (TokenValue, error) {
	claims := Claims{
		MfaVerified: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(i.Expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			NotBefore: jwt.NewNumericDate(time.Now().UTC().Add(-1 * time.Minute)),
			Issuer:    i.Issuer,
			Subject:   userID,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{i.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(i.Secret))
	if err != nil {
		slog.Error("Failed to sign elevation token", "err", err)
		return TokenValue{}, err
	}

	return TokenValue{Token: ss, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// ParseToken parses and validates an elevation token string
func (i *JwtTokenIssuer) ParseToken(tokenStr string) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(i.Secret), nil
	})
	if err != nil {
		return token, err
	}
	if !token.Valid {
		return token, fmt.Errorf("invalid elevation token")
	}
	return token, nil
}
