package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/internal/model"
)

type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) Create(company *model.Company) error {
	return r.db.Create(company).Error
}

func (r *CompanyRepository) GetByID(id int64) (*model.Company, error) {
	var company model.Company
	err := r.db.Where("id = ?", id).First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// GetByOwnerID 返回用户最早创建的公司
func (r *CompanyRepository) GetByOwnerID(ownerID int64) (*model.Company, error) {
	var company model.Company
	err := r.db.Where("owner_id = ?", ownerID).Order("id ASC").First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *CompanyRepository) ListByOwner(ownerID int64) ([]*model.Company, error) {
	var companies []*model.Company
	err := r.db.Where("owner_id = ?", ownerID).Order("id ASC").Find(&companies).Error
	return companies, err
}

func (r *CompanyRepository) UpdateStripeSecret(id int64, encrypted string, connectedAt time.Time) error {
	return r.db.Model(&model.Company{}).Where("id = ?", id).Updates(map[string]interface{}{
		"stripe_secret_enc":   encrypted,
		"stripe_connected_at": connectedAt,
	}).Error
}

// ListStripeConnected 已保存 Stripe 密钥的公司
func (r *CompanyRepository) ListStripeConnected() ([]*model.Company, error) {
	var companies []*model.Company
	err := r.db.Where("stripe_secret_enc <> ''").Order("id ASC").Find(&companies).Error
	return companies, err
}
