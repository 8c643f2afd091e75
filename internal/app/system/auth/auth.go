package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingUID   = errors.New("token has no subject")
)

// Identity is what the identity provider tells us about the caller.
// Only UID is guaranteed.
type Identity struct {
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
}

// Claims carries the profile fields alongside the registered claims.
// The uid is the token subject.
type Claims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens issued by the identity provider.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier returns a Verifier. An empty issuer disables the issuer check.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Sign mints a token for id. The server never issues tokens in production;
// this exists for local development and tests.
func (v *Verifier) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:    id.DisplayName,
		Email:   id.Email,
		Picture: id.PhotoURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses and validates a raw token and returns the caller's identity.
func (v *Verifier) Verify(raw string) (Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, ErrMissingUID
	}

	return Identity{
		UID:         claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		PhotoURL:    claims.Picture,
	}, nil
}

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// CurrentIdentity returns the caller identity and a "found?" flag.
func CurrentIdentity(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(identityKey).(Identity)
	return id, ok && id.UID != ""
}

// WithTestIdentity injects id into the request context, bypassing token
// verification. Used by handler tests.
func WithTestIdentity(r *http.Request, id Identity) *http.Request {
	return r.WithContext(WithIdentity(r.Context(), id))
}

// BearerToken extracts the token from the Authorization header. Browsers
// can't set headers on a WebSocket upgrade, so the access_token query
// parameter is accepted as a fallback.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("access_token")
}

// UnauthorizedFunc writes the 401 response. Supplied by the caller so this
// package doesn't depend on the response envelope.
type UnauthorizedFunc func(w http.ResponseWriter, r *http.Request, err error)

// Require verifies the bearer token and injects the identity into the
// request context. Requests without a valid token get onFail.
func (v *Verifier) Require(onFail UnauthorizedFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := CurrentIdentity(r); ok {
				next.ServeHTTP(w, r)
				return
			}

			raw := BearerToken(r)
			if raw == "" {
				onFail(w, r, ErrInvalidToken)
				return
			}

			id, err := v.Verify(raw)
			if err != nil {
				onFail(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
