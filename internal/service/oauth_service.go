// Package service holds the application services between the HTTP handlers
// and the repositories.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/promoflow/auth-service/internal/config"
	domainErrors "github.com/promoflow/auth-service/internal/domain/errors"
	"github.com/promoflow/auth-service/internal/domain/models"
	"github.com/promoflow/auth-service/internal/domain/repository"
	"github.com/promoflow/auth-service/internal/utils/metrics"
	"github.com/promoflow/auth-service/internal/utils/random"
)

const stateLength = 32

// OAuthService drives the authorization-code flow against the configured
// identity providers: it issues authorization URLs with an anti-forgery
// state, and turns a callback's code into a verified external profile.
type OAuthService struct {
	providers      map[string]config.OAuthProviderConfig
	states         repository.StateStore
	stateTTL       time.Duration
	requestTimeout time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

func NewOAuthService(
	providers map[string]config.OAuthProviderConfig,
	states repository.StateStore,
	oauthCfg config.OAuthConfig,
	logger *zap.Logger,
) *OAuthService {
	return &OAuthService{
		providers:      providers,
		states:         states,
		stateTTL:       oauthCfg.StateTTL,
		requestTimeout: oauthCfg.RequestTimeout,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *OAuthService) providerConfig(provider string) (config.OAuthProviderConfig, error) {
	cfg, ok := s.providers[provider]
	if !ok || !cfg.Configured() {
		return config.OAuthProviderConfig{}, fmt.Errorf("%w: %s", domainErrors.ErrOAuthProviderNotFound, provider)
	}
	return cfg, nil
}

func (s *OAuthService) oauth2Config(cfg config.OAuthProviderConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
	}
}

// BeginAuthorization stores a fresh anti-forgery state and returns the
// provider authorization URL carrying it. Offline access with forced
// consent is requested so the provider returns a refresh token.
func (s *OAuthService) BeginAuthorization(ctx context.Context, provider string) (authorizationURL, state string, err error) {
	cfg, err := s.providerConfig(provider)
	if err != nil {
		return "", "", err
	}

	state, err = random.String(stateLength)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}

	now := s.now()
	err = s.states.Save(ctx, &models.AuthorizationState{
		State:       state,
		Provider:    provider,
		RedirectURI: cfg.RedirectURL,
		Scopes:      cfg.Scopes,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.stateTTL),
	})
	if err != nil {
		return "", "", err
	}

	url := s.oauth2Config(cfg).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	s.logger.Debug("authorization started",
		zap.String("provider", provider))
	return url, state, nil
}

// CompleteAuthorization validates and consumes the callback state, exchanges
// the code for provider tokens and fetches the user's profile. The state is
// gone after this call whether or not the exchange succeeds.
func (s *OAuthService) CompleteAuthorization(ctx context.Context, provider, code, state string) (*models.ExternalProfile, *models.ProviderTokens, error) {
	cfg, err := s.providerConfig(provider)
	if err != nil {
		return nil, nil, err
	}

	stored, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, nil, err
	}
	if stored.Provider != provider {
		s.logger.Warn("state consumed for wrong provider",
			zap.String("expected", stored.Provider),
			zap.String("got", provider))
		return nil, nil, domainErrors.ErrOAuthStateNotFound
	}
	if stored.Expired(s.now()) {
		return nil, nil, domainErrors.ErrOAuthStateNotFound
	}

	tokens, err := s.exchangeCode(ctx, provider, cfg, code)
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.fetchProfile(ctx, provider, cfg, tokens.AccessToken)
	if err != nil {
		return nil, nil, err
	}
	return profile, tokens, nil
}

func (s *OAuthService) exchangeCode(ctx context.Context, provider string, cfg config.OAuthProviderConfig, code string) (*models.ProviderTokens, error) {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: s.requestTimeout})

	start := s.now()
	token, err := s.oauth2Config(cfg).Exchange(ctx, code)
	metrics.ProviderRequestDuration.WithLabelValues(provider, "exchange").
		Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("code exchange failed",
			zap.String("provider", provider),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrOAuthExchange, err)
	}

	scope, _ := token.Extra("scope").(string)
	return &models.ProviderTokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		Scope:        scope,
	}, nil
}

func (s *OAuthService) fetchProfile(ctx context.Context, provider string, cfg config.OAuthProviderConfig, accessToken string) (*models.ExternalProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrProviderUserInfo, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	start := s.now()
	resp, err := http.DefaultClient.Do(req)
	metrics.ProviderRequestDuration.WithLabelValues(provider, "userinfo").
		Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrProviderUserInfo, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrProviderUserInfo, err)
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("userinfo request rejected",
			zap.String("provider", provider),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: provider returned status %d", domainErrors.ErrProviderUserInfo, resp.StatusCode)
	}

	profile, err := parseProfile(provider, body)
	if err != nil {
		return nil, err
	}
	if profile.ExternalID == "" || profile.Email == "" {
		return nil, fmt.Errorf("%w: profile is missing id or email", domainErrors.ErrProviderUserInfo)
	}
	return profile, nil
}

// parseProfile normalizes a userinfo document. Google's v2 endpoint uses
// "id" and "verified_email"; OIDC-style providers use "sub" and
// "email_verified"; numeric ids are stringified.
func parseProfile(provider string, body []byte) (*models.ExternalProfile, error) {
	raw := map[string]any{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrProviderUserInfo, err)
	}

	p := &models.ExternalProfile{
		Provider: provider,
		Raw:      raw,
	}
	p.ExternalID = stringField(raw, "id", "sub")
	p.Email = stringField(raw, "email")
	p.Name = stringField(raw, "name")
	p.Picture = stringField(raw, "picture", "avatar_url")
	p.Locale = stringField(raw, "locale")
	p.EmailVerified = boolField(raw, "verified_email", "email_verified")
	return p, nil
}

func stringField(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func boolField(raw map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := raw[k].(bool); ok {
			return v
		}
	}
	return false
}
