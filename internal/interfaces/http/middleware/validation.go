package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/petshop/erp/internal/interfaces/http/dto"
)

// SetupValidator reports JSON field names and registers the custom tags
// phone_br and sku on gin's validator
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	if err := v.RegisterValidation("phone_br", validatePhoneBR); err != nil {
		return err
	}
	return v.RegisterValidation("sku", validateSKU)
}

func validatePhoneBR(fl validator.FieldLevel) bool {
	_, err := valueobject.NewPhone(fl.Field().String())
	return err == nil
}

func validateSKU(fl validator.FieldLevel) bool {
	return catalog.IsValidSKU(fl.Field().String())
}

// FormatValidationErrors turns binding errors into field details
func FormatValidationErrors(err error) []dto.ValidationDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make([]dto.ValidationDetail, 0, len(verrs))
	for _, e := range verrs {
		details = append(details, dto.ValidationDetail{
			Field:   e.Field(),
			Message: validationMessage(e),
		})
	}
	return details
}

// HandleBindError answers a failed ShouldBind call
func HandleBindError(c *gin.Context, err error) {
	if details := FormatValidationErrors(err); len(details) > 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest,
			dto.NewValidationErrorResponse("Request validation failed", GetRequestID(c), details))
		return
	}
	abort(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed request: "+err.Error())
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "phone_br":
		return "Invalid Brazilian phone number"
	case "sku":
		return "SKU must be 1-50 letters, digits, dot, dash or underscore"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "latitude", "longitude":
		return "Invalid coordinate"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	default:
		return "Invalid value"
	}
}
