package oauth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/qs3c/metrics_go_server/config"
)

// ConnectedAccount Stripe Connect 授权结果，AccessToken 即该账户的只读密钥
type ConnectedAccount struct {
	StripeUserID string
	AccessToken  string
	Livemode     bool
}

type StripeConnect struct {
	config *oauth2.Config
}

func NewStripeConnect(cfg config.StripeConnectConfig) *StripeConnect {
	return &StripeConnect{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read_only"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
				// Stripe 只接受表单里的 client_secret
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// Enabled 是否配置了平台 client_id
func (s *StripeConnect) Enabled() bool {
	return s != nil && s.config.ClientID != "" && s.config.ClientSecret != ""
}

// GetAuthURL 获取 Stripe 授权页地址
func (s *StripeConnect) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange 用授权码换取连接账户的密钥
func (s *StripeConnect) Exchange(ctx context.Context, code string) (*ConnectedAccount, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("stripe connect exchange: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("stripe connect exchange: empty access token")
	}

	acct := &ConnectedAccount{AccessToken: token.AccessToken}
	if v, ok := token.Extra("stripe_user_id").(string); ok {
		acct.StripeUserID = v
	}
	if v, ok := token.Extra("livemode").(bool); ok {
		acct.Livemode = v
	}
	return acct, nil
}
