package dto

import (
	"fmt"
	"strconv"
	"strings"
)

type AddManualBlockRequest struct {
	IPAddress    string      `json:"ip_address"`
	BlockReason  *string     `json:"block_reason"`
	ExpiresHours OptionalInt `json:"expires_hours"`
}

type RemoveManualBlockRequest struct {
	IPAddress string `json:"ip_address"`
}

type MaintenanceToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// OptionalInt accepts a JSON integer, a numeric string as sent by plain form
// inputs, or null. An empty string is treated like null.
type OptionalInt struct {
	value *int
}

func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		o.value = nil
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("dto: invalid string %s: %w", raw, err)
		}
		raw = strings.TrimSpace(unquoted)
		if raw == "" {
			o.value = nil
			return nil
		}
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("dto: %q is not an integer", raw)
	}
	o.value = &n
	return nil
}

// Ptr returns nil when no value was sent.
func (o OptionalInt) Ptr() *int {
	return o.value
}
