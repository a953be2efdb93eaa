package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/mmynk/rollcall/internal/render"
)

// NewValidator returns the validator for admin API messages. It adds the
// "fieldname" tag for custom field names usable in templates.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("fieldname", func(fl validator.FieldLevel) bool {
		return render.ValidName(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}
