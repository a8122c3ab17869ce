package types

import "time"

// PackTemplate is a catalog entry for a prepaid session pack.
// Templates are read-only reference data; assignments copy what they need at purchase time.
type PackTemplate struct {
	ID            string `json:"id" mapstructure:"id"`
	Name          string `json:"name" mapstructure:"name"`
	TotalSessions int    `json:"total_sessions" mapstructure:"total_sessions"`
	// PriceTotal is in minor currency units.
	PriceTotal int64  `json:"price_total" mapstructure:"price_total"`
	Currency   string `json:"currency" mapstructure:"currency"`
	// ValidityDays nil means the pack never expires.
	ValidityDays *int `json:"validity_days" mapstructure:"validity_days"`
}

func (t *PackTemplate) HasExpiry() bool {
	return t != nil && t.ValidityDays != nil
}

// ExpiresAt returns purchasedAt + validity, or nil for templates without a validity window.
func (t *PackTemplate) ExpiresAt(purchasedAt time.Time) *time.Time {
	if !t.HasExpiry() {
		return nil
	}
	at := purchasedAt.AddDate(0, 0, *t.ValidityDays)
	return &at
}
