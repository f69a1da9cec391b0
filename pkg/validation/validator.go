package validation

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator instance with custom tags registered
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("gift_card_type", validateGiftCardType)
	})
	return validate
}

func validateGiftCardType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "DIGITAL", "PHYSICAL", "":
		return true
	default:
		return false
	}
}

// ValidateStruct validates a struct using its validate tags and returns a
// *ValidationError describing every failing field.
func ValidateStruct(s interface{}) error {
	if err := getValidator().Struct(s); err != nil {
		if valErrs, ok := err.(validator.ValidationErrors); ok {
			return NewValidationError(valErrs)
		}
		return err
	}
	return nil
}
