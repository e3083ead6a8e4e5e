package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"factory/internal/apperror"
	"factory/internal/middleware"
	"factory/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps service errors to HTTP responses. Shortage errors carry the
// full shortage list in data.
func writeError(c *gin.Context, err error) {
	var (
		notFound     *apperror.NotFoundError
		validation   *apperror.ValidationError
		quantity     *apperror.InvalidQuantityError
		stock        *apperror.InsufficientStockError
		materials    *apperror.InsufficientMaterialsError
		transition   *apperror.InvalidTransitionError
		duplicate    *apperror.DuplicateError
		integrity    *apperror.ReferentialIntegrityError
		unauthorized *apperror.UnauthorizedError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, notFound.Error()))
	case errors.As(err, &stock):
		c.JSON(http.StatusBadRequest, response.ErrorWithData(http.StatusBadRequest, stock.Error(), stock.Shortages))
	case errors.As(err, &materials):
		c.JSON(http.StatusBadRequest, response.ErrorWithData(http.StatusBadRequest, materials.Error(), materials.Shortages))
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, validation.Error()))
	case errors.As(err, &quantity):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, quantity.Error()))
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, transition.Error()))
	case errors.As(err, &duplicate):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, duplicate.Error()))
	case errors.As(err, &integrity):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, integrity.Error()))
	case errors.As(err, &unauthorized):
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, unauthorized.Error()))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

// paramID parses a positive numeric path parameter, writing 400 on failure.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name))
		return 0, false
	}
	return uint(id), true
}

func queryUint(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// runTransition handles the POST /:id/<action> endpoints shared by the order
// handlers.
func runTransition[T any](c *gin.Context, fn func(ctx context.Context, actor uint, id uint) (T, error)) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	out, err := fn(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, out))
}
