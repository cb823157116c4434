package models

import "gorm.io/gorm"

type ServiceTicket struct {
	gorm.Model

	VIN         string `gorm:"not null"`
	ServiceDate string `gorm:"not null"`
	ServiceDesc string `gorm:"not null"`
	CustomerID  uint   `gorm:"not null;index"`

	// Relationships
	Customer  Customer   `gorm:"foreignKey:CustomerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Mechanics []Mechanic `gorm:"many2many:service_mechanics"`
	Parts     []Part     `gorm:"many2many:service_ticket_parts"`
}
