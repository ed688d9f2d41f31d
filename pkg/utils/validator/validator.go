// Package validator wraps go-playground/validator with English and Chinese
// message translation and plugs into gin's request binding.
package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
	zhtrans "github.com/go-playground/validator/v10/translations/zh"
)

// Supported languages.
const (
	LangEN = "en"
	LangZH = "zh"
)

// Validator validates structs and variables and translates the failures.
type Validator struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
}

var (
	globalValidator *Validator
	globalMu        sync.Mutex
)

// Global returns the process-wide validator, creating it on first use.
func Global() *Validator {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalValidator == nil {
		globalValidator = New()
	}
	return globalValidator
}

// SetGlobal replaces the process-wide validator.
func SetGlobal(v *Validator) {
	globalMu.Lock()
	globalValidator = v
	globalMu.Unlock()
}

// New creates a validator. Field names in messages come from the json tag,
// then the form tag, then the Go field name. Gin's "binding" tag is used
// as the rule tag.
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.SetTagName("binding")
	validate.RegisterTagNameFunc(fieldName)

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, zh.New())

	v := &Validator{validate: validate, uni: uni}

	if trans, ok := uni.GetTranslator(LangEN); ok {
		_ = entrans.RegisterDefaultTranslations(validate, trans)
	}
	if trans, ok := uni.GetTranslator(LangZH); ok {
		_ = zhtrans.RegisterDefaultTranslations(validate, trans)
	}

	v.registerCustomRules()
	v.registerCustomTranslations()

	return v
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// Engine returns the underlying validator, as gin's binding.StructValidator requires.
func (v *Validator) Engine() any {
	return v.validate
}

// ValidateStruct validates structs and pointers to structs; other values pass.
// It implements gin's binding.StructValidator.
func (v *Validator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	val := reflect.ValueOf(obj)
	for val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}
	return v.validate.Struct(obj)
}

// Validate validates a struct. Failures are returned untranslated.
func (v *Validator) Validate(obj any) error {
	return v.ValidateStruct(obj)
}

// ValidateWithLang validates a struct and translates the failures.
// Returns nil when the struct is valid.
func (v *Validator) ValidateWithLang(obj any, lang string) *ValidationErrors {
	return v.Translate(v.ValidateStruct(obj), lang)
}

// ValidateVar validates a single variable against tag.
func (v *Validator) ValidateVar(field any, tag string) error {
	return v.validate.Var(field, tag)
}

// ValidateVarWithLang validates a single variable and translates the failure.
func (v *Validator) ValidateVarWithLang(field any, tag, lang string) *ValidationErrors {
	return v.Translate(v.validate.Var(field, tag), lang)
}

// GetTranslator returns the translator of lang, or nil for unsupported languages.
func (v *Validator) GetTranslator(lang string) ut.Translator {
	trans, found := v.uni.GetTranslator(lang)
	if !found {
		return nil
	}
	return trans
}

// Translate converts a validation error into translated field errors.
// Unknown languages fall back to English. Errors that did not come from the
// validator (for example malformed JSON) become a single message without a field.
func (v *Validator) Translate(err error, lang string) *ValidationErrors {
	if err == nil {
		return nil
	}

	trans := v.GetTranslator(lang)
	if trans == nil {
		trans = v.GetTranslator(LangEN)
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationErrors{Errors: []FieldError{{Message: err.Error()}}}
	}

	out := &ValidationErrors{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   fe.Value(),
			Message: fe.Translate(trans),
		})
	}
	return out
}

// RegisterValidation adds a custom rule.
func (v *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return v.validate.RegisterValidation(tag, fn)
}

// RegisterValidationWithTranslation adds a custom rule with per-language messages.
// Messages use {0} for the field name.
func (v *Validator) RegisterValidationWithTranslation(tag string, fn validator.Func, messages map[string]string) error {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		return err
	}
	for lang, msg := range messages {
		if trans := v.GetTranslator(lang); trans != nil {
			registerTranslation(v.validate, trans, tag, msg)
		}
	}
	return nil
}

// Struct validates obj with the global validator.
func Struct(obj any) error {
	return Global().Validate(obj)
}

// StructWithLang validates obj with the global validator and translates the failures.
func StructWithLang(obj any, lang string) *ValidationErrors {
	return Global().ValidateWithLang(obj, lang)
}
