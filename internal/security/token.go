package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
	ErrMissingScope   = errors.New("token lacks the required scope")
)

type TokenType string

const (
	TokenTypeAccess TokenType = "access"
	TokenTypeJob    TokenType = "job"
)

// Scopes granted to ledger clients.
const (
	ScopeRead  = "ledger:read"
	ScopeWrite = "ledger:write"
	ScopeClose = "ledger:close"
)

const (
	issuer   = "postings-ledger"
	audience = "ledger-api"
)

// UserClaims identifies the user whose name is recorded on postings.
type UserClaims struct {
	User  string    `json:"user"`
	Type  TokenType `json:"type"`
	Scope []string  `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// HasScope reports whether the claims grant scope.
func (c *UserClaims) HasScope(scope string) bool {
	for _, s := range c.Scope {
		if s == scope {
			return true
		}
	}
	return false
}

type TokenManager interface {
	GenerateAccessToken(user string, scope []string) (string, error)
	GenerateJobToken(job string) (string, error)
	ValidateToken(tokenString string) (*UserClaims, error)
}

type tokenManager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, expiry time.Duration) TokenManager {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &tokenManager{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

func (m *tokenManager) GenerateAccessToken(user string, scope []string) (string, error) {
	if user == "" {
		return "", ErrInvalidToken
	}
	return m.sign(UserClaims{User: user, Type: TokenTypeAccess, Scope: scope}, m.expiry)
}

// GenerateJobToken issues a short lived token for scheduled jobs that
// call the API on behalf of the system user.
func (m *tokenManager) GenerateJobToken(job string) (string, error) {
	return m.sign(UserClaims{
		User:  job,
		Type:  TokenTypeJob,
		Scope: []string{ScopeRead, ScopeClose},
	}, 10*time.Minute)
}

func (m *tokenManager) sign(claims UserClaims, ttl time.Duration) (string, error) {
	now := m.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.User,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audience},
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		if claims.User == "" {
			claims.User = claims.Subject
		}
		if claims.User == "" {
			return nil, ErrInvalidToken
		}
		return claims, nil
	}

	return nil, ErrInvalidToken
}
