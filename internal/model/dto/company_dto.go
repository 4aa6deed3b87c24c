package dto

// ConnectStripeRequest 保存 Stripe 密钥
type ConnectStripeRequest struct {
	SecretKey string `json:"secret_key" binding:"required,min=8,max=255"`
}

// CompanyInfo 公司信息，不包含密钥
type CompanyInfo struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	StripeConnected   bool    `json:"stripe_connected"`
	StripeConnectedAt *string `json:"stripe_connected_at"`
}

// StripeConnectURL OAuth 授权跳转地址
type StripeConnectURL struct {
	URL string `json:"url"`
}

// StripeConnectCallback Stripe 回调参数
type StripeConnectCallback struct {
	State            string `form:"state"`
	Code             string `form:"code"`
	Error            string `form:"error"`
	ErrorDescription string `form:"error_description"`
}
