package domain

import "time"

type LoanStatus string

const (
	LoanPending  LoanStatus = "pending"
	LoanReturned LoanStatus = "returned"
)

// Loan is one lending transaction grouping units lent to a person. Status is
// returned iff every line is returned.
type Loan struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	LoanDate   time.Time  `gorm:"not null" json:"loanDate"`
	ReturnDate *time.Time `json:"returnDate,omitempty"`
	Status     LoanStatus `gorm:"size:16;not null;default:pending" json:"status"`
	PersonID   uint       `gorm:"index;not null" json:"personId"`
	RequesterID uint      `gorm:"index;not null" json:"requesterId"`
	ReceiverID *uint      `json:"receiverId,omitempty"`
	Reason     string     `gorm:"size:255" json:"reason"`
	Active     bool       `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (Loan) TableName() string { return "loans" }

// LoanLine is one unit's participation in a loan. Serial is a snapshot of the
// unit's tag at loan time; a unit has at most one pending line at any moment.
type LoanLine struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	LoanID      uint       `gorm:"index;not null" json:"loanId"`
	ItemID      uint       `gorm:"index;not null" json:"itemId"`
	UnitID      uint       `gorm:"index;not null" json:"unitId"`
	Serial      string     `gorm:"size:60;not null" json:"serial"`
	Status      LoanStatus `gorm:"size:16;not null;default:pending" json:"status"`
	PersonID    uint       `gorm:"not null" json:"personId"`
	RequesterID uint       `gorm:"not null" json:"requesterId"`
	ReceiverID  *uint      `json:"receiverId,omitempty"`
	LoanDate    time.Time  `gorm:"not null" json:"loanDate"`
	ReturnDate  *time.Time `json:"returnDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (LoanLine) TableName() string { return "loan_lines" }

// LineView is a loan line joined with the unit's live on-loan flag, so a
// caller never needs a follow-up read to learn the post-state.
type LineView struct {
	LoanLine
	UnitOnLoan bool `json:"unitOnLoan"`
}

// LoanView is the loan header plus its full current line set.
type LoanView struct {
	Loan
	Lines []LineView `json:"lines"`
}
