package models

import "gorm.io/gorm"

type Mechanic struct {
	gorm.Model

	Name   string `gorm:"not null"`
	Email  string `gorm:"uniqueIndex;not null"`
	Phone  string
	Salary float64 `gorm:"not null;default:0"`

	// Relationships
	ServiceTickets []ServiceTicket `gorm:"many2many:service_mechanics"`
}
