package domain

import "time"

// Person is a borrower. People are never hard-deleted, only deactivated.
type Person struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string    `gorm:"size:120;not null" json:"name"`
	Phone1     string    `gorm:"size:20" json:"phone1"`
	Phone2     string    `gorm:"size:20" json:"phone2"`
	PostalCode string    `gorm:"size:10" json:"postalCode"`
	Street     string    `gorm:"size:120" json:"street"`
	District   string    `gorm:"size:80" json:"district"`
	Complement string    `gorm:"size:80" json:"complement"`
	Number     string    `gorm:"size:10" json:"number"`
	Document   string    `gorm:"size:14;uniqueIndex;not null" json:"document"`
	RG         string    `gorm:"size:12" json:"rg"`
	Active     bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Person) TableName() string { return "people" }
