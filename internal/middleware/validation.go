package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/karte-api/internal/model"
	"github.com/jwalitptl/karte-api/pkg/httputil"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationConfig represents validation middleware configuration
type ValidationConfig struct {
	CustomValidators    map[string]validator.Func
	CustomErrorMessages map[string]string
}

func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		CustomValidators: map[string]validator.Func{
			"notekind": validateNoteKind,
		},
		CustomErrorMessages: map[string]string{
			"required": "field is required",
			"notekind": "must be one of memo, record, image",
			"min":      "value is too small",
			"max":      "value is too large",
			"dive":     "invalid item",
		},
	}
}

func validateNoteKind(fl validator.FieldLevel) bool {
	_, ok := model.ParseNoteKind(fl.Field().String())
	return ok
}

// Validation registers the custom validators on gin's binding engine and
// renders bind errors that handlers attach with c.Error as a 400 envelope.
func Validation(config ValidationConfig) gin.HandlerFunc {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		for tag, fn := range config.CustomValidators {
			if err := v.RegisterValidation(tag, fn); err != nil {
				panic(err)
			}
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form", "uri"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
	}

	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		bindErrs := c.Errors.ByType(gin.ErrorTypeBind)
		if len(bindErrs) == 0 {
			return
		}

		var fields []ValidationError
		for _, e := range bindErrs {
			var verrs validator.ValidationErrors
			if !errors.As(e.Err, &verrs) {
				continue
			}
			for _, fe := range verrs {
				msg := config.CustomErrorMessages[fe.Tag()]
				if msg == "" {
					msg = fe.Error()
				}
				fields = append(fields, ValidationError{Field: fe.Field(), Message: msg})
			}
		}

		message := "invalid request"
		if len(fields) > 0 {
			parts := make([]string, 0, len(fields))
			for _, f := range fields {
				parts = append(parts, f.Field+": "+f.Message)
			}
			message = strings.Join(parts, "; ")
		}

		c.AbortWithStatusJSON(http.StatusBadRequest, httputil.Response{
			Success: false,
			Error: &httputil.Error{
				Code:    http.StatusBadRequest,
				Message: message,
			},
		})
	}
}
