package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mechshop-dev/mechshop/internal/models"
	"github.com/mechshop-dev/mechshop/internal/types"
	"gorm.io/gorm"
)

type MechanicRequest struct {
	Name   string  `json:"name" binding:"required"`
	Email  string  `json:"email" binding:"required,email"`
	Phone  string  `json:"phone"`
	Salary float64 `json:"salary"`
}

// MechanicHandler is the shop-managed mechanic catalogue. These routes carry
// no auth; see DESIGN.md for the trust-boundary note.
type MechanicHandler struct {
	DB *gorm.DB
}

func NewMechanicHandler(conn *gorm.DB) *MechanicHandler {
	return &MechanicHandler{DB: conn}
}

func (h *MechanicHandler) Create(ctx *gin.Context) {
	var req MechanicRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var existing models.Mechanic

	err := h.DB.Where("email = ?", req.Email).First(&existing).Error

	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already associated with an account"})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking existing mechanic: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	mechanic := models.Mechanic{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Salary: req.Salary,
	}

	if err := h.DB.Create(&mechanic).Error; err != nil {
		log.Printf("Failed to create mechanic: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusCreated, mechanicResponse(&mechanic))
}

func (h *MechanicHandler) List(ctx *gin.Context) {
	var mechanics []models.Mechanic

	if err := h.DB.Find(&mechanics).Error; err != nil {
		log.Printf("Failed to list mechanics: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := make([]types.MechanicResponse, 0, len(mechanics))
	for i := range mechanics {
		response = append(response, mechanicResponse(&mechanics[i]))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *MechanicHandler) Get(ctx *gin.Context) {
	mechanic, ok := h.load(ctx)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, mechanicResponse(mechanic))
}

func (h *MechanicHandler) Update(ctx *gin.Context) {
	mechanic, ok := h.load(ctx)

	if !ok {
		return
	}

	var req MechanicRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	mechanic.Name = req.Name
	mechanic.Email = req.Email
	mechanic.Phone = req.Phone
	mechanic.Salary = req.Salary

	if err := h.DB.Save(mechanic).Error; err != nil {
		log.Printf("Failed to update mechanic: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, mechanicResponse(mechanic))
}

func (h *MechanicHandler) Delete(ctx *gin.Context) {
	mechanic, ok := h.load(ctx)

	if !ok {
		return
	}

	if err := h.DB.Delete(mechanic).Error; err != nil {
		log.Printf("Failed to delete mechanic: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Mechanic deleted successfully"})
}

func (h *MechanicHandler) load(ctx *gin.Context) (*models.Mechanic, bool) {
	mechanicID, ok := parseID(ctx, "id")

	if !ok {
		return nil, false
	}

	var mechanic models.Mechanic

	if err := h.DB.First(&mechanic, mechanicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Mechanic not found"})
		} else {
			log.Printf("Failed to fetch mechanic: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return nil, false
	}

	return &mechanic, true
}

func mechanicResponse(m *models.Mechanic) types.MechanicResponse {
	return types.MechanicResponse{
		ID:     m.ID,
		Name:   m.Name,
		Email:  m.Email,
		Phone:  m.Phone,
		Salary: m.Salary,
	}
}
