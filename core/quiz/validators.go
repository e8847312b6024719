package quiz

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/soma/core"
)

var (
	correctOptionTag  = "correctoption"
	correctOptionText = "{0} must be the index of one of the options"
)

// InitValidators registers the quiz validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(questionStructValidation, Question{})
	core.RegisterCustomTranslation(validate, translator, correctOptionTag, correctOptionText)
}

// questionStructValidation checks that the correct option indexes into the options.
func questionStructValidation(sl validator.StructLevel) {
	q, ok := sl.Current().Interface().(Question)
	if !ok {
		return
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		sl.ReportError(q.CorrectOption, "correctAnswer", "CorrectOption", correctOptionTag, "")
	}
}
