package models

import "gorm.io/gorm"

// Part is an inventory item in the shop (oil filter, brake pads, ...).
type Part struct {
	gorm.Model

	Name  string  `gorm:"uniqueIndex;not null"`
	Price float64 `gorm:"not null;default:0"`

	// Relationships
	ServiceTickets []ServiceTicket `gorm:"many2many:service_ticket_parts"`
}
