package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradewire/ictbot/internal/domain"
	"github.com/tradewire/ictbot/internal/notify"
)

// TokenExchanger is the OAuth side of the broker gateway.
type TokenExchanger interface {
	// AuthorizeURL returns the broker's authorization dialog URL.
	AuthorizeURL() string
	// ExchangeToken trades an authorization code for a credential.
	ExchangeToken(ctx context.Context, code string) (domain.Credential, error)
}

// AuthService handles the OAuth login flow and persists the resulting
// credential for the gateway to use.
type AuthService struct {
	exchanger TokenExchanger
	tokens    domain.TokenStore
	notifier  *notify.Notifier
	logger    *slog.Logger
}

// NewAuthService wires an AuthService.
func NewAuthService(exchanger TokenExchanger, tokens domain.TokenStore, notifier *notify.Notifier, logger *slog.Logger) *AuthService {
	return &AuthService{
		exchanger: exchanger,
		tokens:    tokens,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "auth")),
	}
}

// LoginURL returns the authorization dialog URL for the redirect.
func (s *AuthService) LoginURL() string {
	return s.exchanger.AuthorizeURL()
}

// HandleCallback exchanges the authorization code and persists the credential.
func (s *AuthService) HandleCallback(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("service: callback: missing code: %w", domain.ErrInvalidAction)
	}
	cred, err := s.exchanger.ExchangeToken(ctx, code)
	if err != nil {
		return fmt.Errorf("service: token exchange: %w", err)
	}
	if err := s.tokens.Save(ctx, cred); err != nil {
		return fmt.Errorf("service: save credential: %w", err)
	}
	s.logger.InfoContext(ctx, "access token refreshed",
		slog.Time("issued_at", cred.IssuedAt),
		slog.Time("valid_until", cred.IssuedAt.Add(domain.CredentialTTL)),
	)
	_ = s.notifier.Notify(ctx, EventSignal, "🔑 Access Token Updated",
		fmt.Sprintf("Valid until %s", cred.IssuedAt.Add(domain.CredentialTTL).Format(time.RFC3339)))
	return nil
}
