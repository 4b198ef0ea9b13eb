package httpclient

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/reqflow/validation"
)

// AuthType identifies the authentication method.
type AuthType int

const (
	// AuthNone disables authentication.
	AuthNone AuthType = iota
	// AuthBearer uses Bearer token authentication.
	AuthBearer
	// AuthBasic uses HTTP Basic authentication.
	AuthBasic
	// AuthAPIKey uses API key authentication (header or query parameter).
	AuthAPIKey
	// AuthCustom uses a custom authentication function.
	AuthCustom
	// AuthJWT signs a short-lived token for every attempt.
	AuthJWT
)

const defaultAPIKeyName = "X-API-Key"

// AuthConfig configures request authentication. It is applied as the first
// before-request step of every attempt.
type AuthConfig struct {
	// Type is the authentication method.
	Type AuthType
	// Token is the bearer token (AuthBearer).
	Token string
	// Username is the basic auth username (AuthBasic).
	Username string
	// Password is the basic auth password (AuthBasic).
	Password string
	// Key is the API key value (AuthAPIKey).
	Key string
	// In specifies where to place the API key: "header" (default) or "query" (AuthAPIKey).
	In string
	// Name is the header or query parameter name (AuthAPIKey). Defaults to "X-API-Key".
	Name string
	// Apply is a custom function to modify the request (AuthCustom).
	Apply func(ctx context.Context, req *RequestContext) error
	// JWT signs tokens (AuthJWT).
	JWT *JWTConfig
}

var authTypeNames = map[AuthType]string{
	AuthNone:   "none",
	AuthBearer: "bearer",
	AuthBasic:  "basic",
	AuthAPIKey: "api_key",
	AuthCustom: "custom",
	AuthJWT:    "jwt",
}

// String returns the auth type name.
func (t AuthType) String() string {
	if name, ok := authTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("AuthType(%d)", int(t))
}

// Validate checks that the fields the auth type needs are set.
func (a *AuthConfig) Validate() error {
	if a == nil {
		return nil
	}
	v := validation.New()
	switch a.Type {
	case AuthNone:
	case AuthBearer:
		v.Required("auth.token", a.Token)
	case AuthBasic:
		v.Required("auth.username", a.Username)
	case AuthAPIKey:
		v.Required("auth.key", a.Key).
			OneOf("auth.in", a.In, []string{"header", "query"})
	case AuthCustom:
		v.Custom(a.Apply != nil, "auth.apply", "is required")
	case AuthJWT:
		v.Custom(a.JWT != nil, "auth.jwt", "is required")
		if a.JWT != nil {
			v.Custom(len(a.JWT.Secret) > 0 || a.JWT.PrivateKey != nil, "auth.jwt.secret", "secret or private key is required")
		}
	default:
		v.AddError("auth.type", "unknown auth type "+a.Type.String())
	}
	return v.Err()
}

// BearerAuth creates a bearer token auth config.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// BasicAuth creates a basic auth config.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth creates an API key auth config sent via header.
func APIKeyAuth(key string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: defaultAPIKeyName}
}

// APIKeyAuthHeader creates an API key auth config with a custom header name.
func APIKeyAuthHeader(key, headerName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: headerName}
}

// APIKeyAuthQuery creates an API key auth config sent via query parameter.
func APIKeyAuthQuery(key, paramName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "query", Name: paramName}
}

// CustomAuth creates a custom auth config with a request modifier function.
func CustomAuth(fn func(ctx context.Context, req *RequestContext) error) *AuthConfig {
	return &AuthConfig{Type: AuthCustom, Apply: fn}
}

// JWTAuth creates an auth config that sends a freshly signed bearer token.
func JWTAuth(cfg JWTConfig) *AuthConfig {
	return &AuthConfig{Type: AuthJWT, JWT: &cfg}
}

// Hook returns the auth config as a before-request hook.
func (a *AuthConfig) Hook() BeforeRequestHook {
	return func(ctx context.Context, req *RequestContext) error {
		return a.apply(ctx, req)
	}
}

func (a *AuthConfig) apply(ctx context.Context, req *RequestContext) error {
	if a == nil {
		return nil
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case AuthBasic:
		creds := base64.StdEncoding.EncodeToString([]byte(a.Username + ":" + a.Password))
		req.Header.Set("Authorization", "Basic "+creds)
	case AuthAPIKey:
		name := a.Name
		if name == "" {
			name = defaultAPIKeyName
		}
		if a.In == "query" {
			req.Query.Set(name, a.Key)
		} else {
			req.Header.Set(name, a.Key)
		}
	case AuthCustom:
		if a.Apply != nil {
			return a.Apply(ctx, req)
		}
	case AuthJWT:
		token, err := a.JWT.Sign(time.Now())
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// JWTConfig configures service-to-service JWT signing.
type JWTConfig struct {
	// Secret is the HMAC key for HS* methods.
	Secret []byte
	// PrivateKey is the RSA or ECDSA key for RS*/ES* methods.
	PrivateKey any
	// Method defaults to HS256.
	Method gojwt.SigningMethod
	Issuer   string
	Subject  string
	Audience []string
	// TTL is the token lifetime. Defaults to 1m.
	TTL time.Duration
	// Claims are extra private claims added to every token.
	Claims map[string]any
}

// Sign returns a token issued at now.
func (c *JWTConfig) Sign(now time.Time) (string, error) {
	if c == nil {
		return "", errors.New("httpclient: jwt auth not configured")
	}
	method := c.Method
	if method == nil {
		method = gojwt.SigningMethodHS256
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	claims := gojwt.MapClaims{}
	for k, v := range c.Claims {
		claims[k] = v
	}
	claims["iat"] = gojwt.NewNumericDate(now)
	claims["exp"] = gojwt.NewNumericDate(now.Add(ttl))
	if c.Issuer != "" {
		claims["iss"] = c.Issuer
	}
	if c.Subject != "" {
		claims["sub"] = c.Subject
	}
	if len(c.Audience) > 0 {
		claims["aud"] = c.Audience
	}

	var key any = c.Secret
	if c.PrivateKey != nil {
		key = c.PrivateKey
	}
	signed, err := gojwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("httpclient: sign jwt: %w", err)
	}
	return signed, nil
}
