package domain

import "time"

// Item is a catalogued kind of equipment. Total and Available are derived
// counters: they always equal the live aggregate over the item's units and
// are rewritten by the recalculator inside the same transaction as any
// unit-flag mutation, never incremented.
type Item struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	Total       int       `gorm:"not null;default:0" json:"total"`
	Available   int       `gorm:"not null;default:0" json:"available"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Item) TableName() string { return "items" }

// PatrimonyUnit is one physically tagged instance of an Item. Serial tags are
// unique system-wide, not per item. OnLoan is true iff exactly one pending
// loan line references the unit.
type PatrimonyUnit struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID    uint      `gorm:"index;not null" json:"itemId"`
	Serial    string    `gorm:"size:60;uniqueIndex;not null" json:"serial"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	OnLoan    bool      `gorm:"not null;default:false" json:"onLoan"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (PatrimonyUnit) TableName() string { return "patrimony_units" }

// ItemView is an item enriched with its live unit list for list/get responses.
type ItemView struct {
	Item
	Units []PatrimonyUnit `json:"units"`
}
