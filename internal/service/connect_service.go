package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/pkg/logger"
	"github.com/qs3c/metrics_go_server/internal/pkg/oauth"
)

var (
	ErrConnectDisabled       = errors.New("未启用 Stripe OAuth 连接")
	ErrConnectStateInvalid   = errors.New("授权已过期，请重新连接")
	ErrConnectDenied         = errors.New("已取消 Stripe 授权")
	ErrConnectExchangeFailed = errors.New("Stripe 授权失败，请重试")
)

// ConnectProvider 换取连接账户密钥
type ConnectProvider interface {
	Enabled() bool
	GetAuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth.ConnectedAccount, error)
}

// ConnectService 通过 Stripe Connect OAuth 连接公司账户，与手动填写密钥二选一
type ConnectService struct {
	companies *CompanyService
	provider  ConnectProvider
	states    *oauth.StateStore
	logger    *zap.Logger
}

func NewConnectService(companies *CompanyService, provider ConnectProvider, states *oauth.StateStore, log *zap.Logger) *ConnectService {
	return &ConnectService{
		companies: companies,
		provider:  provider,
		states:    states,
		logger:    log.Named("stripe_connect"),
	}
}

// AuthorizeURL 校验公司归属后生成授权地址
func (s *ConnectService) AuthorizeURL(ctx context.Context, userID, companyID int64) (*dto.StripeConnectURL, error) {
	if !s.provider.Enabled() {
		return nil, ErrConnectDisabled
	}
	company, err := s.companies.Resolve(userID, &companyID)
	if err != nil {
		return nil, err
	}

	state, err := s.states.GenerateState(ctx, &oauth.StateData{UserID: userID, CompanyID: company.ID})
	if err != nil {
		return nil, err
	}
	return &dto.StripeConnectURL{URL: s.provider.GetAuthURL(state)}, nil
}

// Complete 处理回调：消费 state，换取密钥并加密保存
func (s *ConnectService) Complete(ctx context.Context, cb *dto.StripeConnectCallback) (*dto.CompanyInfo, error) {
	if !s.provider.Enabled() {
		return nil, ErrConnectDisabled
	}

	data, err := s.states.ConsumeState(ctx, cb.State)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidState) {
			return nil, ErrConnectStateInvalid
		}
		return nil, err
	}
	log := s.logger.With(logger.CompanyID(data.CompanyID), logger.UserID(data.UserID))

	if cb.Error != "" {
		log.Info("stripe connect denied", zap.String("error", cb.Error))
		return nil, ErrConnectDenied
	}
	if cb.Code == "" {
		return nil, ErrConnectStateInvalid
	}

	acct, err := s.provider.Exchange(ctx, cb.Code)
	if err != nil {
		log.Warn("stripe connect exchange failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrConnectExchangeFailed, err)
	}

	info, err := s.companies.ConnectStripe(data.UserID, data.CompanyID, acct.AccessToken)
	if err != nil {
		return nil, err
	}
	log.Info("stripe account connected",
		zap.String("stripe_user_id", acct.StripeUserID),
		zap.Bool("livemode", acct.Livemode),
	)
	return info, nil
}
