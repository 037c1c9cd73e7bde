package dto

type RateLimitStatus struct {
	IP              string  `json:"ip"`
	CurrentRequests int64   `json:"current_requests"`
	Limit           int64   `json:"limit"`
	Remaining       int64   `json:"remaining"`
	Blocked         bool    `json:"blocked"`
	BlockReason     *string `json:"block_reason"`
	ResetTime       string  `json:"reset_time"`
	Country         string  `json:"country,omitempty"`
}
