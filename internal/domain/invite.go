package domain

import "time"

const InviteBonusPoints = 100

// Invite - одноразовый реферальный код.
type Invite struct {
	ID            string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	Code          string     `json:"code" gorm:"type:varchar(16);not null;uniqueIndex"`
	InviterID     string     `json:"inviter_id" gorm:"type:varchar(36);not null;index"`
	IsActive      bool       `json:"is_active" gorm:"not null;default:true"`
	IsUsed        bool       `json:"is_used" gorm:"not null;default:false"`
	InvitedUserID *string    `json:"invited_user_id,omitempty" gorm:"type:varchar(36)"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"not null"`
}

// Available сообщает, можно ли погасить код.
func (i *Invite) Available() bool {
	return i.IsActive && !i.IsUsed
}
