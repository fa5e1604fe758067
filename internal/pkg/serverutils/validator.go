package serverutils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"genius-be/internal/dto"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRequest runs struct validation and reports the first failure as an
// InvalidInput error.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return dto.NewInvalidInputError("Invalid request body")
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required", "min":
		if fe.Field() == "messages" {
			return dto.NewInvalidInputError("Messages are required")
		}
		return dto.NewInvalidInputError(fmt.Sprintf("%s is required", fe.Field()))
	case "oneof":
		return dto.NewInvalidInputError(fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
	default:
		return dto.NewInvalidInputError(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}
