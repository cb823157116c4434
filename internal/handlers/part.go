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

type PartRequest struct {
	Name  string  `json:"name" binding:"required"`
	Price float64 `json:"price"`
}

// PartHandler is the inventory catalogue. Unauthenticated like the mechanic
// routes.
type PartHandler struct {
	DB *gorm.DB
}

func NewPartHandler(conn *gorm.DB) *PartHandler {
	return &PartHandler{DB: conn}
}

func (h *PartHandler) Create(ctx *gin.Context) {
	var req PartRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var existing models.Part

	err := h.DB.Where("name = ?", req.Name).First(&existing).Error

	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Part name already exists"})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking existing part: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	part := models.Part{
		Name:  req.Name,
		Price: req.Price,
	}

	if err := h.DB.Create(&part).Error; err != nil {
		log.Printf("Failed to create part: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusCreated, partResponse(&part))
}

func (h *PartHandler) List(ctx *gin.Context) {
	var parts []models.Part

	if err := h.DB.Find(&parts).Error; err != nil {
		log.Printf("Failed to list parts: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := make([]types.PartResponse, 0, len(parts))
	for i := range parts {
		response = append(response, partResponse(&parts[i]))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *PartHandler) Get(ctx *gin.Context) {
	part, ok := h.load(ctx)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, partResponse(part))
}

func (h *PartHandler) Update(ctx *gin.Context) {
	part, ok := h.load(ctx)

	if !ok {
		return
	}

	var req PartRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	part.Name = req.Name
	part.Price = req.Price

	if err := h.DB.Save(part).Error; err != nil {
		log.Printf("Failed to update part: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, partResponse(part))
}

func (h *PartHandler) Delete(ctx *gin.Context) {
	part, ok := h.load(ctx)

	if !ok {
		return
	}

	if err := h.DB.Delete(part).Error; err != nil {
		log.Printf("Failed to delete part: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Part deleted successfully"})
}

func (h *PartHandler) load(ctx *gin.Context) (*models.Part, bool) {
	partID, ok := parseID(ctx, "id")

	if !ok {
		return nil, false
	}

	var part models.Part

	if err := h.DB.First(&part, partID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Part not found"})
		} else {
			log.Printf("Failed to fetch part: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return nil, false
	}

	return &part, true
}

func partResponse(p *models.Part) types.PartResponse {
	return types.PartResponse{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
	}
}
