package httpx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"msgengine/internal/common"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// TokenSource supplies the bearer token attached to every backend call.
type TokenSource interface {
	Token() (string, error)
}

// StaticTokenSource wraps a token handed to us by the host application.
type StaticTokenSource string

func (s StaticTokenSource) Token() (string, error) {
	return string(s), nil
}

//claims represents the data stored in the JWT token
type claims struct {
	jwt.RegisteredClaims
}

// HS256TokenSource self-signs short-lived tokens and caches them until they
// are close to expiry.
type HS256TokenSource struct {
	secret  []byte
	subject string

	mu      sync.Mutex
	cached  string
	expires time.Time

	now func() time.Time
}

func NewHS256TokenSource(secret, subject string) *HS256TokenSource {
	return &HS256TokenSource{
		secret:  []byte(secret),
		subject: subject,
		now:     time.Now,
	}
}

func (s *HS256TokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// refresh a minute early so an in-flight request never carries an
	// expired token
	if s.cached != "" && s.expires.After(s.now().Add(time.Minute)) {
		return s.cached, nil
	}

	now := s.now()
	expires := now.Add(24 * time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "msgengine",
			Subject:   s.subject,
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	s.cached = signed
	s.expires = expires
	return signed, nil
}

// AuthClient is the default common.AuthenticatedClient: a plain net/http
// client that attaches a bearer token. Timeout policy lives here, the sync
// layer deliberately carries none of its own.
type AuthClient struct {
	http   *http.Client
	tokens TokenSource
	log    *zap.SugaredLogger
}

func NewAuthClient(tokens TokenSource, log *zap.SugaredLogger) *AuthClient {
	return &AuthClient{
		http:   &http.Client{Timeout: 30 * time.Second},
		tokens: tokens,
		log:    log,
	}
}

func (c *AuthClient) Execute(ctx context.Context, method, url string, headers map[string]string, body []byte) (*common.HTTPResponse, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &common.NetworkError{Op: method + " " + url, Err: err}
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, &common.NetworkError{Op: "token source", Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &common.NetworkError{Op: method + " " + url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &common.NetworkError{Op: "read response body", Err: err}
	}

	return &common.HTTPResponse{Status: resp.StatusCode, Body: respBody}, nil
}
