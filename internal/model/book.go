package model

import (
	"time"

	"gorm.io/gorm"
)

// Category groups books.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"ID"`
	Name      string    `gorm:"size:100;not null;index" json:"Name"`
	CreatedAt time.Time `json:"CreatedAt"`

	Books []Book `json:"Books,omitempty"`
}

// Book represents a title in the inventory.
//
// Available is derived from Withdrawn and AvailableCopies on every save and is
// stored only so that it can be filtered on.
type Book struct {
	ID              uint      `gorm:"primaryKey" json:"ID"`
	Title           string    `gorm:"size:255;not null;index" json:"Title"`
	Author          string    `gorm:"size:255;not null" json:"Author"`
	CategoryID      uint      `gorm:"index;not null" json:"CategoryID"`
	Category        *Category `gorm:"constraint:OnDelete:RESTRICT" json:"Category,omitempty"`
	AvailableCopies int       `gorm:"not null;default:0" json:"AvailableCopies"`
	Withdrawn       bool      `gorm:"not null;default:false" json:"Withdrawn"`
	Available       bool      `gorm:"not null;default:false;index" json:"Available"`
	CreatedAt       time.Time `json:"CreatedAt"`
	UpdatedAt       time.Time `json:"UpdatedAt"`
}

// IsAvailable is the availability rule: not withdrawn and at least one copy.
func (b *Book) IsAvailable() bool {
	return !b.Withdrawn && b.AvailableCopies > 0
}

// BeforeSave keeps Available consistent with the copy count.
func (b *Book) BeforeSave(tx *gorm.DB) error {
	b.Available = b.IsAvailable()
	return nil
}
