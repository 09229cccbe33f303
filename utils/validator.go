package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var folderNamePattern = regexp.MustCompile(`^[^<>:"/\\|?*]+$`)

func init() {
	validate = validator.New()

	validate.RegisterValidation("node_name", validateNodeName)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateStruct validates a struct using validator tags
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ValidNodeName reports whether a name is usable as a tree node name:
// non-empty, no path separators or reserved characters.
func ValidNodeName(name string) bool {
	return name != "" && folderNamePattern.MatchString(name)
}

func validateNodeName(fl validator.FieldLevel) bool {
	return ValidNodeName(fl.Field().String())
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, fmt.Sprintf("%s failed on %s", fieldErr.Field(), fieldErr.Tag()))
	}
	return ValidationError("%s", strings.Join(messages, "; "))
}
