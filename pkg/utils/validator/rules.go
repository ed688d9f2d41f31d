package validator

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// Custom validation tags
const (
	TagNotBlank = "notblank" // String must contain a non-whitespace character
	TagTrimmed  = "trimmed"  // String should be trimmed (no leading/trailing spaces)
)

func (v *Validator) registerCustomRules() {
	_ = v.validate.RegisterValidation(TagNotBlank, validateNotBlank)
	_ = v.validate.RegisterValidation(TagTrimmed, validateTrimmed)
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateTrimmed(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == strings.TrimSpace(s)
}

func (v *Validator) registerCustomTranslations() {
	translations := map[string]map[string]string{
		LangEN: {
			TagNotBlank: "{0} must not be empty",
			TagTrimmed:  "{0} must not have leading or trailing spaces",
		},
		LangZH: {
			TagNotBlank: "{0}不能为空",
			TagTrimmed:  "{0}不能有前导或尾随空格",
		},
	}
	for lang, messages := range translations {
		trans := v.GetTranslator(lang)
		if trans == nil {
			continue
		}
		for tag, msg := range messages {
			registerTranslation(v.validate, trans, tag, msg)
		}
	}
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, message string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	)
}
