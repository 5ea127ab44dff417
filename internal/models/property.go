// internal/models/property.go
package models

import (
	"github.com/lib/pq"
)

// Property is the tokenized listing investors buy fractions of. This core
// treats it as read-mostly: the only write it performs is the guarded
// decrement of AvailableTokens during settlement.
type Property struct {
	BaseModel
	Title                 string         `json:"title" gorm:"size:255;not null"`
	Description           string         `json:"description" gorm:"type:text"`
	Address               string         `json:"address" gorm:"size:255"`
	City                  string         `json:"city" gorm:"size:100;index"`
	Country               string         `json:"country" gorm:"size:100;index"`
	TotalTokens           int64          `json:"total_tokens" gorm:"not null"`
	AvailableTokens       int64          `json:"available_tokens" gorm:"not null"`
	PricePerToken         float64        `json:"price_per_token" gorm:"type:decimal(15,2);not null"`
	PlatformFeePercentage float64        `json:"platform_fee_percentage" gorm:"type:decimal(5,2);default:2.0"`
	MinimumInvestment     float64        `json:"minimum_investment" gorm:"type:decimal(15,2);default:0"`
	ExpectedAnnualYield   float64        `json:"expected_annual_yield" gorm:"type:decimal(5,2);default:0"`
	LedgerTokenID         string         `json:"ledger_token_id" gorm:"size:128;index"`
	TreasuryAccount       string         `json:"treasury_account" gorm:"size:128"`
	Images                pq.StringArray `json:"images" gorm:"type:text[]"`
	Status                PropertyStatus `json:"status" gorm:"type:varchar(20);default:'draft';index"`

	// Relationships
	Investments []Investment `json:"investments,omitempty" gorm:"foreignKey:PropertyID"`
}

// Tokenized reports whether the property has been issued on the ledger and
// can be settled against.
func (p *Property) Tokenized() bool {
	return p.LedgerTokenID != "" && p.TreasuryAccount != ""
}
