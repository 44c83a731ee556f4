package response

import (
	stderrors "errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	apiError "github.com/techagentng/sakany/errors"
	"gorm.io/gorm"
)

// JSON writes the standard response envelope.
func JSON(c *gin.Context, message string, status int, data interface{}, err error) {
	errMessage := ""
	if err != nil {
		errMessage = err.Error()
	}
	responseData := gin.H{
		"message":   message,
		"data":      data,
		"errors":    errMessage,
		"status":    http.StatusText(status),
		"timestamp": time.Now().Format("2006-01-02 15:04:05"),
	}

	c.JSON(status, responseData)
}

// HandleErrors maps service and repository errors onto an HTTP status.
func HandleErrors(c *gin.Context, err error) {
	var apiErr *apiError.Error
	var validationErrs validator.ValidationErrors
	cause := errors.Cause(err)
	switch {
	case stderrors.Is(err, apiError.ErrStoreUnavailable):
		log.Printf("store error: %v", err)
		JSON(c, "", http.StatusServiceUnavailable, nil, apiError.ErrStoreUnavailable)
	case stderrors.As(err, &apiErr):
		JSON(c, "", apiErr.Status, nil, apiErr)
	case stderrors.As(err, &validationErrs):
		JSON(c, "", http.StatusBadRequest, nil, err)
	case stderrors.Is(err, apiError.ErrValidation):
		JSON(c, "", http.StatusBadRequest, nil, err)
	case stderrors.Is(cause, gorm.ErrRecordNotFound):
		JSON(c, "", http.StatusNotFound, nil, apiError.ErrNotFound)
	default:
		log.Printf("unhandled error: %v", err)
		JSON(c, "", http.StatusInternalServerError, nil, apiError.ErrInternalServerError)
	}
}
