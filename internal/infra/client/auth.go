package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// AuthClient authenticates against a remote auth API.
type AuthClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewAuthClient creates a new AuthClient.
func NewAuthClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *AuthClient {
	return &AuthClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login posts credentials to {base}/api/auth/login.
func (c *AuthClient) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "AuthClient.Login")
	defer span.End()
	span.SetAttributes(attribute.String("auth.op", "login"))

	return c.post(ctx, "/api/auth/login", loginBody{Email: email, Password: password})
}

// Register posts a new account to {base}/api/auth/register.
func (c *AuthClient) Register(ctx context.Context, name, email, password string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "AuthClient.Register")
	defer span.End()
	span.SetAttributes(attribute.String("auth.op", "register"))

	return c.post(ctx, "/api/auth/register", registerBody{Name: name, Email: email, Password: password})
}

func (c *AuthClient) post(ctx context.Context, path string, payload any) (*domain.Session, error) {
	var session domain.Session

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(payload)
			if err != nil {
				return resilience.Permanent(err)
			}

			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
			if err != nil {
				return resilience.Permanent(err)
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
				return resilience.Permanent(&domain.ErrUnauthorized{Message: "invalid credentials"})
			case resp.StatusCode == http.StatusConflict:
				return resilience.Permanent(&domain.ErrConflict{Message: "email already registered"})
			case resp.StatusCode >= 500:
				return fmt.Errorf("auth API returned status %d", resp.StatusCode)
			case resp.StatusCode < 200 || resp.StatusCode > 299:
				return resilience.Permanent(fmt.Errorf("auth API returned status %d", resp.StatusCode))
			}

			if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
				return resilience.Permanent(fmt.Errorf("decode auth response: %w", err))
			}
			if session.User.ID == "" || session.Token == "" {
				return resilience.Permanent(errors.New("auth response missing user id or token"))
			}
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &session, nil
	})

	if err != nil {
		var unauth *domain.ErrUnauthorized
		if errors.As(err, &unauth) {
			return nil, unauth
		}
		var conflict *domain.ErrConflict
		if errors.As(err, &conflict) {
			return nil, conflict
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.ErrCircuitOpen{Service: "auth"}
		}
		return nil, &domain.ErrExternalService{Service: "auth", Err: err}
	}

	return result.(*domain.Session), nil
}
