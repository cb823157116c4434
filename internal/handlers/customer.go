package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mechshop-dev/mechshop/internal/auth"
	"github.com/mechshop-dev/mechshop/internal/cache"
	"github.com/mechshop-dev/mechshop/internal/models"
	"github.com/mechshop-dev/mechshop/internal/types"
	"github.com/mechshop-dev/mechshop/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterCustomerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateCustomerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"omitempty,min=8"`
}

type CustomerHandler struct {
	DB     *gorm.DB
	Tokens *auth.Manager
	Cache  *cache.ListCache
}

func NewCustomerHandler(conn *gorm.DB, tokens *auth.Manager, listCache *cache.ListCache) *CustomerHandler {
	return &CustomerHandler{DB: conn, Tokens: tokens, Cache: listCache}
}

func (h *CustomerHandler) Register(ctx *gin.Context) {
	var req RegisterCustomerRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var existing models.Customer

	err := h.DB.Where("email = ?", req.Email).First(&existing).Error

	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already associated with an account"})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking existing customer: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)

	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	customer := models.Customer{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(passwordHash),
	}

	if err := h.DB.Create(&customer).Error; err != nil {
		log.Printf("Failed to create customer: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusCreated, customerResponse(&customer))
}

func (h *CustomerHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var customer models.Customer

	err := h.DB.Where("email = ?", req.Email).First(&customer).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same response as a wrong password so the two cases are
			// indistinguishable to the caller.
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		log.Printf("Database error when fetching customer: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(req.Password)); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.Tokens.Issue(customer.ID)

	if err != nil {
		log.Printf("Failed to issue token: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"message":    "Successfully logged in",
		"auth_token": token,
	})
}

func (h *CustomerHandler) List(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	if err != nil || limit < 1 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Limit must be at least 1"})
		return
	}

	if limit > 100 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Limit cannot be greater than 100"})
		return
	}

	offset, err := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	if err != nil || offset < 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Offset cannot be negative"})
		return
	}

	var customers []models.Customer

	if err := h.DB.Limit(limit).Offset(offset).Find(&customers).Error; err != nil {
		log.Printf("Failed to list customers: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := make([]types.CustomerResponse, 0, len(customers))
	for i := range customers {
		response = append(response, customerResponse(&customers[i]))
	}

	ctx.JSON(http.StatusOK, gin.H{
		"limit":     limit,
		"offset":    offset,
		"count":     len(response),
		"customers": response,
	})
}

func (h *CustomerHandler) Get(ctx *gin.Context) {
	customerID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer id"})
		return
	}

	var customer models.Customer

	if err := h.DB.First(&customer, uint(customerID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		} else {
			log.Printf("Failed to fetch customer: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	ctx.JSON(http.StatusOK, customerResponse(&customer))
}

// MyTickets returns the tickets owned by the authenticated customer, never
// anyone else's.
func (h *CustomerHandler) MyTickets(ctx *gin.Context) {
	customerID, err := utils.GetCurrentCustomerID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return
	}

	var tickets []models.ServiceTicket

	if err := h.DB.Preload("Mechanics").Preload("Parts").Where("customer_id = ?", customerID).Find(&tickets).Error; err != nil {
		log.Printf("Failed to list tickets: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := make([]types.TicketResponse, 0, len(tickets))
	for i := range tickets {
		response = append(response, ticketResponse(&tickets[i]))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *CustomerHandler) UpdateMe(ctx *gin.Context) {
	customerID, err := utils.GetCurrentCustomerID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return
	}

	var customer models.Customer

	if err := h.DB.First(&customer, customerID).Error; err != nil {
		log.Printf("Failed to fetch customer: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var req UpdateCustomerRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.Email != customer.Email {
		var existing models.Customer

		err := h.DB.Where("email = ? AND id != ?", req.Email, customer.ID).First(&existing).Error

		if err == nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already associated with an account"})
			return
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Database error when checking existing email: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	customer.Name = req.Name
	customer.Email = req.Email
	customer.Phone = req.Phone

	if req.Password != "" {
		passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)

		if err != nil {
			log.Printf("Failed to hash password: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		customer.PasswordHash = string(passwordHash)
	}

	if err := h.DB.Save(&customer).Error; err != nil {
		log.Printf("Failed to update customer: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, customerResponse(&customer))
}

// DeleteMe removes the authenticated customer's account along with the
// tickets it owns.
func (h *CustomerHandler) DeleteMe(ctx *gin.Context) {
	customerID, err := utils.GetCurrentCustomerID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ?", customerID).Delete(&models.ServiceTicket{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Customer{}, customerID).Error
	})

	if err != nil {
		log.Printf("Failed to delete customer: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.Cache.Invalidate()

	ctx.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}

func customerResponse(c *models.Customer) types.CustomerResponse {
	return types.CustomerResponse{
		ID:    c.ID,
		Name:  c.Name,
		Email: c.Email,
		Phone: c.Phone,
	}
}
