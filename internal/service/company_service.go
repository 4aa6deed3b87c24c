package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/pkg/logger"
	"github.com/qs3c/metrics_go_server/internal/pkg/secret"
	"github.com/qs3c/metrics_go_server/internal/repository"
)

var (
	ErrCompanyNotFound    = errors.New("公司不存在")
	ErrCompanyForbidden   = errors.New("无权访问此公司")
	ErrStripeNotConnected = errors.New("公司尚未连接 Stripe")
	ErrSecretDecrypt      = errors.New("Stripe 凭证不可用，请联系管理员")
)

type CompanyService struct {
	companyRepo *repository.CompanyRepository
	cipher      *secret.Cipher
	logger      *zap.Logger
}

func NewCompanyService(companyRepo *repository.CompanyRepository, cipher *secret.Cipher, log *zap.Logger) *CompanyService {
	return &CompanyService{
		companyRepo: companyRepo,
		cipher:      cipher,
		logger:      log.Named("company"),
	}
}

// Resolve 确定目标公司，companyID 为空时取用户自己的公司
func (s *CompanyService) Resolve(userID int64, companyID *int64) (*model.Company, error) {
	var (
		company *model.Company
		err     error
	)
	if companyID == nil {
		company, err = s.companyRepo.GetByOwnerID(userID)
	} else {
		company, err = s.companyRepo.GetByID(*companyID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	if company.OwnerID != userID {
		return nil, ErrCompanyForbidden
	}
	return company, nil
}

// ConnectStripe 加密保存 Stripe 密钥
func (s *CompanyService) ConnectStripe(userID, companyID int64, secretKey string) (*dto.CompanyInfo, error) {
	company, err := s.Resolve(userID, &companyID)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.cipher.Encrypt(secretKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt stripe key: %w", err)
	}

	now := time.Now().UTC()
	if err := s.companyRepo.UpdateStripeSecret(company.ID, encrypted, now); err != nil {
		return nil, err
	}
	company.StripeSecretEnc = encrypted
	company.StripeConnectedAt = &now

	s.logger.Info("stripe key stored", logger.CompanyID(company.ID), logger.UserID(userID))
	return CompanyInfo(company), nil
}

// StripeKey 即时解密，失败作为安全事件记录
func (s *CompanyService) StripeKey(company *model.Company) (string, error) {
	if !company.HasStripe() {
		return "", ErrStripeNotConnected
	}
	key, err := s.cipher.Decrypt(company.StripeSecretEnc)
	if err != nil {
		s.logger.Error("stripe key decrypt failed",
			logger.CompanyID(company.ID),
			logger.Event(logger.EventSecretDecryptFailed),
			zap.Error(err),
		)
		return "", ErrSecretDecrypt
	}
	return key, nil
}

// ListStripeConnected 已连接 Stripe 的公司
func (s *CompanyService) ListStripeConnected() ([]*model.Company, error) {
	return s.companyRepo.ListStripeConnected()
}

// CompanyInfo 转换为对外结构，不含密钥
func CompanyInfo(c *model.Company) *dto.CompanyInfo {
	return &dto.CompanyInfo{
		ID:                c.ID,
		Name:              c.Name,
		StripeConnected:   c.HasStripe(),
		StripeConnectedAt: formatTime(c.StripeConnectedAt),
	}
}
