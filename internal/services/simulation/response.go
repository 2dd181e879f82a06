package simulation

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every API answer.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "success", Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: http.StatusCreated, Message: "created", Data: data})
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Code: code, Message: message})
}

func badRequest(c *gin.Context, message string)   { fail(c, http.StatusBadRequest, message) }
func unauthorized(c *gin.Context, message string) { fail(c, http.StatusUnauthorized, message) }
func internalError(c *gin.Context, message string) {
	fail(c, http.StatusInternalServerError, message)
}
