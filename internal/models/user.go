// internal/models/user.go
package models

import (
	"time"
)

type User struct {
	BaseModel
	Username      string     `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email         string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	UserType      UserType   `json:"user_type" gorm:"type:varchar(20);default:'investor'"`
	Status        UserStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
	KYCStatus     KYCStatus  `json:"kyc_status" gorm:"type:varchar(20);default:'unverified';index"`
	WalletAddress string     `json:"wallet_address" gorm:"size:128"`
	ProfileData   JSONB      `json:"profile_data" gorm:"type:jsonb"`
	KYCApprovedAt *time.Time `json:"kyc_approved_at"`
	LastLoginAt   *time.Time `json:"last_login_at"`

	// Relationships
	Investments  []Investment  `json:"investments,omitempty" gorm:"foreignKey:UserID"`
	Transactions []Transaction `json:"transactions,omitempty" gorm:"foreignKey:UserID"`
}

// CanInvest reports whether the user passes the local (non-compliance)
// preconditions for a purchase.
func (u *User) CanInvest() bool {
	return u.Status == UserStatusActive && u.KYCStatus == KYCStatusApproved && u.WalletAddress != ""
}
