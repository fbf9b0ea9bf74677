package domain

import "time"

// Operator is a staff account acting on the system. Loans record which
// operator requisitioned them and which one received the return.
type Operator struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"size:120;not null" json:"name"`
	Phone        string    `gorm:"size:20" json:"phone"`
	Email        string    `gorm:"size:191;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	Admin        bool      `gorm:"not null;default:false" json:"admin"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Operator) TableName() string { return "operators" }

// PasswordToken is a single-use password reset credential.
type PasswordToken struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OperatorID uint      `gorm:"index;not null" json:"operatorId"`
	Token      string    `gorm:"size:36;uniqueIndex;not null" json:"token"`
	Used       bool      `gorm:"not null;default:false" json:"used"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (PasswordToken) TableName() string { return "password_tokens" }
