package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	intlPhoneRegex   = regexp.MustCompile(`^\+\d{10,15}$`)
	countryCodeRegex = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

// ValidationError is one field level problem reported back to the client.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidationErrors is returned by ValidateStruct when at least one field fails.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

var (
	validate   *validator.Validate
	translator ut.Translator
	initOnce   sync.Once
)

func setupValidator() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	_ = validate.RegisterValidation("intlphone", func(fl validator.FieldLevel) bool {
		return intlPhoneRegex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("countrycode", func(fl validator.FieldLevel) bool {
		return countryCodeRegex.MatchString(fl.Field().String())
	})

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	registerMessage("intlphone", "{0} must be in international format, e.g. +212600000000")
	registerMessage("countrycode", "{0} must be a 2-letter country code")
}

func registerMessage(tag, text string) {
	_ = validate.RegisterTranslation(tag, translator,
		func(t ut.Translator) error {
			return t.Add(tag, text, true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(tag, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	initOnce.Do(setupValidator)
	return validate
}

// ValidateStruct runs the struct tags of v and converts failures into
// translated field messages. A nil return means v is valid.
func ValidateStruct(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: fe.Translate(translator),
		})
	}
	return out
}

// NormalizeEmail lowercases and trims an email address for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DigitsOnly strips everything but 0-9 from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
