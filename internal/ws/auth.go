package ws

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/config"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Claims carries the caller's role; the user id is the token subject.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator turns bearer tokens into role contexts.
type Authenticator struct {
	secret         []byte
	issuer         string
	allowAnonymous bool
	anonymousRole  vessel.Role
}

func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	role, _ := vessel.ParseRole(cfg.AnonymousRole)
	return &Authenticator{
		secret:         []byte(cfg.JWTSecret),
		issuer:         cfg.Issuer,
		allowAnonymous: cfg.AllowAnonymous,
		anonymousRole:  role,
	}
}

// Authenticate reads the token from the Authorization header or, for
// browser websocket clients, the token query parameter.
func (a *Authenticator) Authenticate(r *http.Request) (vessel.RoleContext, error) {
	token := r.URL.Query().Get("token")
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimPrefix(auth, "Bearer ")
	}

	if token == "" {
		if a.allowAnonymous {
			return vessel.RoleContext{Role: a.anonymousRole, UserID: "anonymous"}, nil
		}
		return vessel.RoleContext{}, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}
	return a.Verify(token)
}

// Verify validates an HS256 token and maps its claims to a role context.
func (a *Authenticator) Verify(token string) (vessel.RoleContext, error) {
	if len(a.secret) == 0 {
		return vessel.RoleContext{}, fmt.Errorf("%w: no signing secret configured", ErrUnauthenticated)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return vessel.RoleContext{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return vessel.RoleContext{}, fmt.Errorf("%w: invalid token claims", ErrUnauthenticated)
	}
	role, ok := vessel.ParseRole(claims.Role)
	if !ok {
		return vessel.RoleContext{}, fmt.Errorf("%w: unknown role %q", ErrUnauthenticated, claims.Role)
	}
	if claims.Subject == "" {
		return vessel.RoleContext{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return vessel.RoleContext{Role: role, UserID: claims.Subject}, nil
}

// Issue signs a token for rc valid for ttl.
func (a *Authenticator) Issue(rc vessel.RoleContext, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("no signing secret configured")
	}
	now := time.Now()
	claims := &Claims{
		Role: string(rc.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rc.UserID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
