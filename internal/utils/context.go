package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/mechshop-dev/mechshop/internal/middleware"
	"github.com/mechshop-dev/mechshop/internal/types"
)

func GetCurrentCustomer(ctx *gin.Context) (middleware.AuthenticatedCustomer, error) {
	customer, exists := ctx.Get(types.ContextCustomerKey)

	if !exists {
		return middleware.AuthenticatedCustomer{}, fmt.Errorf("customer not authenticated")
	}

	authenticatedCustomer, ok := customer.(middleware.AuthenticatedCustomer)

	if !ok {
		return middleware.AuthenticatedCustomer{}, fmt.Errorf("invalid customer type in context")
	}

	return authenticatedCustomer, nil
}

func GetCurrentCustomerID(ctx *gin.Context) (uint, error) {
	customer, err := GetCurrentCustomer(ctx)

	if err != nil {
		return 0, err
	}

	return customer.ID, nil
}
