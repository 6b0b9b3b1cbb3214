package subject

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/kalume/darasa/core"
)

var (
	subjectCodeTag   = "subjectcode"
	subjectCodeText  = "subject code must be 2 to 12 alphanumeric characters or dashes"
	subjectCodeRegex = regexp.MustCompile(`^[a-z0-9-]{2,12}$`)
)

// InitValidators registers this package's custom validators and translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(subjectCodeTag, subjectCodeValidation)
	core.RegisterCustomTranslation(validate, translator, subjectCodeTag, subjectCodeText)
}

// subjectCodeValidation validates the (already lowered) subject code.
func subjectCodeValidation(fl validator.FieldLevel) bool {
	return subjectCodeRegex.MatchString(fl.Field().String())
}
