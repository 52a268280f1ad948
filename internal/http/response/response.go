package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepsutra/dpp-backend/internal/dpperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondDPPError maps a core error onto its HTTP status and code. Internal
// errors keep their detail out of the body.
func RespondDPPError(c *gin.Context, err error) {
	status := dpperr.StatusOf(err)
	code := dpperr.CodeOf(err)
	if status >= http.StatusInternalServerError {
		c.JSON(status, ErrorEnvelope{
			Error: APIError{Message: "internal error", Code: code},
		})
		return
	}
	RespondError(c, status, code, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
