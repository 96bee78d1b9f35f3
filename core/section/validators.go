package section

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	// custom validation tags & texts
	sectionStatusTag  = "sectionstatus"
	sectionStatusText = "invalid section status"
)

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(sectionStatusTag, sectionStatusValidation)
	core.RegisterCustomTranslation(validate, translator, sectionStatusTag, sectionStatusText)
}

// sectionStatusValidation checks that the provided status is a known one.
func sectionStatusValidation(fl validator.FieldLevel) bool {
	status, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	for _, s := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}
