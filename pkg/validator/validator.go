package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
)

// RegisterCustom installs domain validation rules on gin's request binding
// engine. Call once at startup before routes are registered.
func RegisterCustom() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("slotaligned", slotAligned); err != nil {
		return err
	}
	return v.RegisterValidation("slotduration", slotDuration)
}

// slotAligned accepts times that fall on a slot boundary.
func slotAligned(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(model.TimeOfDay)
	if !ok {
		return false
	}
	return t.Aligned()
}

// slotDuration accepts positive whole multiples of the slot length.
func slotDuration(fl validator.FieldLevel) bool {
	minutes := fl.Field().Int()
	return minutes > 0 && minutes%model.SlotMinutes == 0
}
