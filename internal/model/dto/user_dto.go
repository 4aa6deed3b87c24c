package dto

// UserProfile 当前用户、套餐与名下公司
type UserProfile struct {
	ID        int64          `json:"id"`
	Username  string         `json:"username"`
	Email     string         `json:"email,omitempty"`
	Plan      *PlanInfo      `json:"plan"`
	HasAccess bool           `json:"has_access"`
	Companies []*CompanyInfo `json:"companies"`
}

// PlanInfo 有效套餐
type PlanInfo struct {
	Plan      string `json:"plan"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}
