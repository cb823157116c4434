package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mechshop-dev/mechshop/internal/cache"
	"github.com/mechshop-dev/mechshop/internal/models"
	"github.com/mechshop-dev/mechshop/internal/relations"
	"github.com/mechshop-dev/mechshop/internal/types"
	"github.com/mechshop-dev/mechshop/internal/utils"
	"gorm.io/gorm"
)

type CreateTicketRequest struct {
	VIN         string `json:"vin" binding:"required"`
	ServiceDate string `json:"service_date" binding:"required"`
	ServiceDesc string `json:"service_desc" binding:"required"`
}

type UpdateTicketRequest struct {
	VIN         string `json:"vin" binding:"required"`
	ServiceDate string `json:"service_date" binding:"required"`
	ServiceDesc string `json:"service_desc" binding:"required"`
}

type EditMembershipRequest struct {
	AddIDs    []uint `json:"add_ids"`
	RemoveIDs []uint `json:"remove_ids"`
}

type TicketHandler struct {
	DB     *gorm.DB
	Engine *relations.Engine
	Cache  *cache.ListCache
}

func NewTicketHandler(conn *gorm.DB, engine *relations.Engine, listCache *cache.ListCache) *TicketHandler {
	return &TicketHandler{DB: conn, Engine: engine, Cache: listCache}
}

// Create opens a ticket owned by the authenticated customer. The owner always
// comes from the token, never from the request body.
func (h *TicketHandler) Create(ctx *gin.Context) {
	var req CreateTicketRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	customerID, err := utils.GetCurrentCustomerID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return
	}

	ticket := models.ServiceTicket{
		VIN:         req.VIN,
		ServiceDate: req.ServiceDate,
		ServiceDesc: req.ServiceDesc,
		CustomerID:  customerID,
	}

	if err := h.DB.Create(&ticket).Error; err != nil {
		log.Printf("Failed to create ticket: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.Cache.Invalidate()

	ctx.JSON(http.StatusCreated, ticketResponse(&ticket))
}

// List is the public ticket listing, served through the read-through cache.
func (h *TicketHandler) List(ctx *gin.Context) {
	cached, gen, ok := h.Cache.Get()

	if ok {
		ctx.JSON(http.StatusOK, cached)
		return
	}

	var tickets []models.ServiceTicket

	if err := h.DB.Preload("Mechanics").Preload("Parts").Find(&tickets).Error; err != nil {
		log.Printf("Failed to list tickets: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := make([]types.TicketResponse, 0, len(tickets))
	for i := range tickets {
		response = append(response, ticketResponse(&tickets[i]))
	}

	h.Cache.Put(response, gen)

	ctx.JSON(http.StatusOK, response)
}

func (h *TicketHandler) Get(ctx *gin.Context) {
	ticket, ok := h.ownedTicket(ctx)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, ticketResponse(ticket))
}

func (h *TicketHandler) Update(ctx *gin.Context) {
	ticket, ok := h.ownedTicket(ctx)

	if !ok {
		return
	}

	var req UpdateTicketRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ticket.VIN = req.VIN
	ticket.ServiceDate = req.ServiceDate
	ticket.ServiceDesc = req.ServiceDesc

	if err := h.DB.Save(ticket).Error; err != nil {
		log.Printf("Failed to update ticket: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.Cache.Invalidate()

	ctx.JSON(http.StatusOK, ticketResponse(ticket))
}

func (h *TicketHandler) Delete(ctx *gin.Context) {
	ticket, ok := h.ownedTicket(ctx)

	if !ok {
		return
	}

	if err := h.DB.Delete(ticket).Error; err != nil {
		log.Printf("Failed to delete ticket: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.Cache.Invalidate()

	ctx.JSON(http.StatusOK, gin.H{"message": "Ticket deleted successfully"})
}

func (h *TicketHandler) AssignMechanic(ctx *gin.Context) {
	ticket, ok := h.ownedTicket(ctx)

	if !ok {
		return
	}

	mechanicID, ok := parseID(ctx, "mechanic_id")

	if !ok {
		return
	}

	updated, already, err := h.Engine.AssignMechanic(ticket.ID, mechanicID)

	if err != nil {
		h.relationError(ctx, err)
		return
	}

	if already {
		ctx.JSON(http.StatusOK, gin.H{"message": "Mechanic already assigned", "ticket_id": updated.ID})
		return
	}

	h.Cache.Invalidate()

	ctx.JSON(http.StatusOK, ticketResponse(updated))
}

func (h *TicketHandler) RemoveMechanic(ctx *gin.Context) {
	ticket, ok := h.ownedTicket(ctx)

	if !ok {
		return
	}

	mechanicID, ok := parseID(ctx, "mechanic_id")

	if !ok {
		return
	}

	updated, err := h.Engine.RemoveMechanic(ticket.ID, mechanicID)

	if err != nil {
		h.relationError(ctx, err)
		return
	}

	h.Cache.Invalidate()

	remaining := make([]uint, 0, len(updated.Mechanics))
	for _, m := range updated.Mechanics {
		remaining = append(remaining, m.ID)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":                "Mechanic removed from ticket",
		"ticket_id":              updated.ID,
		"remaining_mechanic_ids": remaining,
	})
}

func (h *TicketHandler) EditMechanics(ctx *gin.Context) {
	ticket, ok := h.ownedTicket(ctx)

	if !ok {
		return
	}

	var req EditMembershipRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	updated, err := h.Engine.EditMechanics(ticket.ID, req.AddIDs, req.RemoveIDs)

	if err != nil {
		h.relationError(ctx, err)
		return
	}

	h.Cache.Invalidate()

	ctx.JSON(http.StatusOK, ticketResponse(updated))
}

func (h *TicketHandler) AddPart(ctx *gin.Context) {
	ticket, ok := h.ownedTicket(ctx)

	if !ok {
		return
	}

	partID, ok := parseID(ctx, "part_id")

	if !ok {
		return
	}

	updated, already, err := h.Engine.AddPart(ticket.ID, partID)

	if err != nil {
		h.relationError(ctx, err)
		return
	}

	if already {
		ctx.JSON(http.StatusOK, gin.H{"message": "Part already on ticket", "ticket_id": updated.ID})
		return
	}

	h.Cache.Invalidate()

	ctx.JSON(http.StatusOK, ticketResponse(updated))
}

func (h *TicketHandler) RemovePart(ctx *gin.Context) {
	ticket, ok := h.ownedTicket(ctx)

	if !ok {
		return
	}

	partID, ok := parseID(ctx, "part_id")

	if !ok {
		return
	}

	updated, err := h.Engine.RemovePart(ticket.ID, partID)

	if err != nil {
		h.relationError(ctx, err)
		return
	}

	h.Cache.Invalidate()

	remaining := make([]uint, 0, len(updated.Parts))
	for _, p := range updated.Parts {
		remaining = append(remaining, p.ID)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":            "Part removed from ticket",
		"ticket_id":          updated.ID,
		"remaining_part_ids": remaining,
	})
}

func (h *TicketHandler) EditParts(ctx *gin.Context) {
	ticket, ok := h.ownedTicket(ctx)

	if !ok {
		return
	}

	var req EditMembershipRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	updated, err := h.Engine.EditParts(ticket.ID, req.AddIDs, req.RemoveIDs)

	if err != nil {
		h.relationError(ctx, err)
		return
	}

	h.Cache.Invalidate()

	ctx.JSON(http.StatusOK, ticketResponse(updated))
}

// ownedTicket loads the ticket from the path and enforces the ownership
// policy: 404 when the ticket does not exist, 403 when it belongs to someone
// else. The two are kept distinct on purpose. When ok is false a response has
// already been written.
func (h *TicketHandler) ownedTicket(ctx *gin.Context) (*models.ServiceTicket, bool) {
	ticketID, ok := parseID(ctx, "id")

	if !ok {
		return nil, false
	}

	customerID, err := utils.GetCurrentCustomerID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return nil, false
	}

	var ticket models.ServiceTicket

	if err := h.DB.Preload("Mechanics").Preload("Parts").First(&ticket, ticketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		} else {
			log.Printf("Failed to fetch ticket: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return nil, false
	}

	if ticket.CustomerID != customerID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this ticket"})
		return nil, false
	}

	return &ticket, true
}

func (h *TicketHandler) relationError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, relations.ErrTicketNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
	case errors.Is(err, relations.ErrMechanicNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Mechanic not found"})
	case errors.Is(err, relations.ErrPartNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Part not found"})
	case errors.Is(err, relations.ErrNotLinked):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Not linked to this ticket"})
	default:
		log.Printf("Relationship mutation failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func parseID(ctx *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(param), 10, 32)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return 0, false
	}

	return uint(id), true
}

func ticketResponse(t *models.ServiceTicket) types.TicketResponse {
	mechanics := make([]types.MechanicResponse, 0, len(t.Mechanics))
	for i := range t.Mechanics {
		mechanics = append(mechanics, mechanicResponse(&t.Mechanics[i]))
	}

	parts := make([]types.PartResponse, 0, len(t.Parts))
	for i := range t.Parts {
		parts = append(parts, partResponse(&t.Parts[i]))
	}

	return types.TicketResponse{
		ID:          t.ID,
		VIN:         t.VIN,
		ServiceDate: t.ServiceDate,
		ServiceDesc: t.ServiceDesc,
		CustomerID:  t.CustomerID,
		Mechanics:   mechanics,
		Parts:       parts,
	}
}
