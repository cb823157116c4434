package models

import "gorm.io/gorm"

type Customer struct {
	gorm.Model

	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	Phone        string
	PasswordHash string `gorm:"not null"`

	// Relationships
	ServiceTickets []ServiceTicket `gorm:"foreignKey:CustomerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
