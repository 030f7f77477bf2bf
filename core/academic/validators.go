package academic

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/cems/core"
)

var (
	statusTag  = "status"
	statusText = "status must be one of " + strings.Join(Statuses, ", ")
)

// InitValidators registers the validators of the academics DTOs.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.MustRegisterValidation(validate, statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

// statusValidation checks the field is a known enrollment status.
func statusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range Statuses {
		if status == s {
			return true
		}
	}
	return false
}
