package model

import (
	"time"
)

type Company struct {
	ID                int64      `gorm:"primaryKey" json:"id"`
	OwnerID           int64      `gorm:"not null;index" json:"owner_id"`
	Name              string     `gorm:"size:100;not null" json:"name"`
	StripeSecretEnc   string     `gorm:"column:stripe_secret_enc;type:text" json:"-"`
	StripeConnectedAt *time.Time `json:"stripe_connected_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}

// HasStripe 是否已保存 Stripe 密钥
func (c *Company) HasStripe() bool {
	return c.StripeSecretEnc != ""
}
