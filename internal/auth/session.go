// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/scoresheet/internal/models"
)

// CookieName is the cookie carrying the scorekeeper's token.
const CookieName = "auth_token"

// ErrNoToken is returned when a request carries neither the cookie nor a bearer token.
var ErrNoToken = errors.New("missing auth token")

// privateKey and publicKey are used for signing and verifying JWT tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenExpire is the lifetime of issued tokens (0 => never).
	tokenExpire time.Duration
)

// Init generates a fresh ed25519 key pair at runtime and sets the token lifetime.
// Tokens issued before a restart become invalid.
func Init(expire time.Duration) error {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	tokenExpire = expire
	return nil
}

// InitFromPath reads ed25519 private/public keys from file and sets the token lifetime.
func InitFromPath(privatePath, publicPath string, expire time.Duration) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid ed25519 key size")
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	tokenExpire = expire
	return nil
}

// TokenMaxAge is the cookie MaxAge matching the token lifetime (0 => session cookie).
func TokenMaxAge() int {
	return int(tokenExpire.Seconds())
}

// CreateJWT creates a signed JWT with "sub" = subject and an optional display name.
func CreateJWT(subject, name string) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": time.Now().Unix(),
	}
	if name != "" {
		claims["name"] = name
	}
	if tokenExpire > 0 {
		claims["exp"] = time.Now().Add(tokenExpire).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a JWT string, returns the "sub" field if valid, else an error.
func AuthenticateJWT(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid jwt claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return sub, nil
}

// TokenFromRequest returns the token from the auth cookie, or from an
// "Authorization: Bearer" header when no cookie is present.
func TokenFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer "), nil
	}
	return "", ErrNoToken
}

// Authenticate resolves the identity behind a request.
func Authenticate(r *http.Request) (string, error) {
	token, err := TokenFromRequest(r)
	if err != nil {
		return "", err
	}
	return AuthenticateJWT(token)
}

// NewGuest issues an ephemeral identity with its token. Guests are not stored anywhere;
// the token alone identifies the scorekeeper.
func NewGuest(username string) (models.Identity, string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return models.Identity{}, "", fmt.Errorf("failed to generate guest id: %w", err)
	}
	if username == "" {
		username = "Guest"
	}
	ident := models.Identity{ID: id, Username: username, IsEphemeral: true}
	token, err := CreateJWT(id.String(), username)
	if err != nil {
		return models.Identity{}, "", fmt.Errorf("failed to create guest JWT: %w", err)
	}
	return ident, token, nil
}
