package types

type CustomerResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type MechanicResponse struct {
	ID     uint    `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Phone  string  `json:"phone,omitempty"`
	Salary float64 `json:"salary"`
}

type PartResponse struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type TicketResponse struct {
	ID          uint               `json:"id"`
	VIN         string             `json:"vin"`
	ServiceDate string             `json:"service_date"`
	ServiceDesc string             `json:"service_desc"`
	CustomerID  uint               `json:"customer_id"`
	Mechanics   []MechanicResponse `json:"mechanics"`
	Parts       []PartResponse     `json:"parts"`
}
