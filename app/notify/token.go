package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	assertionLifetime = time.Hour
	// tokens are refreshed this long before they expire
	tokenRefreshMargin = time.Minute
)

// ServiceAccount is the subset of a Google service account key file needed
// to mint access tokens.
type ServiceAccount struct {
	ProjectID    string `json:"project_id"`
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

func ParseServiceAccount(data []byte) (*ServiceAccount, error) {
	var account ServiceAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to parse service account: %w", err)
	}
	if account.ClientEmail == "" || account.PrivateKey == "" {
		return nil, fmt.Errorf("service account is missing client_email or private_key")
	}
	if account.TokenURI == "" {
		account.TokenURI = "https://oauth2.googleapis.com/token"
	}
	return &account, nil
}

type assertionClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// tokenCache holds the current access token. A token is reused until
// tokenRefreshMargin before its expiry.
type tokenCache struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
	now    func() time.Time
}

func (c *tokenCache) get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !c.now().Add(tokenRefreshMargin).Before(c.expiry) {
		return "", false
	}
	return c.token, true
}

func (c *tokenCache) set(token string, expiry time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiry = expiry
}

type tokenSource struct {
	account *ServiceAccount
	client  *http.Client
	cache   tokenCache

	// serializes refreshes so concurrent sends mint one token
	refresh sync.Mutex
}

func newTokenSource(account *ServiceAccount, client *http.Client) *tokenSource {
	return &tokenSource{
		account: account,
		client:  client,
		cache:   tokenCache{now: time.Now},
	}
}

func (s *tokenSource) Token(ctx context.Context) (string, error) {
	if token, ok := s.cache.get(); ok {
		return token, nil
	}

	s.refresh.Lock()
	defer s.refresh.Unlock()

	if token, ok := s.cache.get(); ok {
		return token, nil
	}

	assertion, err := s.assertion()
	if err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.account.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}

	expiry := s.cache.now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	s.cache.set(payload.AccessToken, expiry)

	return payload.AccessToken, nil
}

func (s *tokenSource) assertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(s.account.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	now := s.cache.now()
	claims := assertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.account.ClientEmail,
			Subject:   s.account.ClientEmail,
			Audience:  jwt.ClaimStrings{s.account.TokenURI},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		},
		Scope: messagingScope,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if s.account.PrivateKeyID != "" {
		token.Header["kid"] = s.account.PrivateKeyID
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}
