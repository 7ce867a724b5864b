package validator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/samber/lo"
)

var ErrTranslatorNotFound = errors.New("validator: english translator not found")

// FieldErrors maps snake_case field names to a readable message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation error"
	}
	b, _ := json.Marshal(map[string]string(fe))
	return string(b)
}

func (fe FieldErrors) Values() map[string]string { return fe }

// pattern is a regexp backed tag with its English message.
type pattern struct {
	tag string
	re  *regexp.Regexp
	msg string
}

var patterns = []pattern{
	// leading plus optional, 10 to 15 digits
	{tag: "phone", re: regexp.MustCompile(`^\+?[0-9]{10,15}$`), msg: "{0} must be a valid phone number"},
	{tag: "otp", re: regexp.MustCompile(`^[0-9]{6}$`), msg: "{0} must be exactly 6 digits"},
}

type V10Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func NewV10Validator() (*V10Validator, error) {
	lang := en.New()
	trans, ok := ut.New(lang, lang).GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := enTranslations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, err
	}

	for _, p := range patterns {
		if err := registerPattern(v, trans, p); err != nil {
			return nil, err
		}
	}

	return &V10Validator{validate: v, trans: trans}, nil
}

func registerPattern(v *validator.Validate, trans ut.Translator, p pattern) error {
	err := v.RegisterValidation(p.tag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && p.re.MatchString(s)
	})
	if err != nil {
		return err
	}

	return v.RegisterTranslation(p.tag, trans,
		func(t ut.Translator) error { return t.Add(p.tag, p.msg, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(fe.Tag(), fe.Field())
			if err != nil {
				slog.Warn("validator translation failed", "tag", fe.Tag(), "error", err)
				return fe.Error()
			}
			return msg
		},
	)
}

// Validate returns FieldErrors when a tag rule fails, or the raw error for
// anything else such as a non struct argument.
func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		out[lo.SnakeCase(fe.Field())] = fe.Translate(v.trans)
	}
	return out
}
