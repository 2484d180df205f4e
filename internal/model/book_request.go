package model

import "time"

// BookRequest is a student's claim on a book. It starts pending and moves to
// approved exactly once; there is no rejected or cancelled state.
type BookRequest struct {
	ID         uint       `gorm:"primaryKey" json:"ID"`
	StudentID  uint       `gorm:"index:idx_request_student_book;not null" json:"StudentID"`
	BookID     uint       `gorm:"index:idx_request_student_book;not null" json:"BookID"`
	IsApproved bool       `gorm:"not null;default:false;index" json:"IsApproved"`
	ApprovedAt *time.Time `json:"ApprovedAt,omitempty"`
	CreatedAt  time.Time  `json:"CreatedAt"`

	Student *Student `gorm:"constraint:OnDelete:CASCADE" json:"Student,omitempty"`
	Book    *Book    `gorm:"constraint:OnDelete:CASCADE" json:"Book,omitempty"`
}
