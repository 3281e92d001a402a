package middleware

import (
	"net/http"

	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// BindJSON binds and validates the request body. On failure it answers 400 with
// the failed fields and returns false.
func BindJSON(c *gin.Context, obj interface{}) bool {
	return bind(c, obj, binding.JSON)
}

// BindQuery binds and validates the query string
func BindQuery(c *gin.Context, obj interface{}) bool {
	return bind(c, obj, binding.Query)
}

// BindForm binds and validates a multipart form
func BindForm(c *gin.Context, obj interface{}) bool {
	return bind(c, obj, binding.FormMultipart)
}

func bind(c *gin.Context, obj interface{}, b binding.Binding) bool {
	if err := c.ShouldBindWith(obj, b); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return false
	}
	return true
}
