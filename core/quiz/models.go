package quiz

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/subject"
)

var OrderingFields = map[string]string{
	"title":     "title",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type Question struct {
	Text          string   `json:"question" validate:"notblank"`
	Options       []string `json:"options" validate:"required,min=2,dive,notblank"`
	CorrectOption int      `json:"correctAnswer"`
}

// IsCorrect reports whether answer is the index of the correct option.
// Out of range answers are never correct.
func (q Question) IsCorrect(answer int) bool {
	if answer < 0 || answer >= len(q.Options) {
		return false
	}
	return answer == q.CorrectOption
}

type Quiz struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Subject   subject.Ref `json:"subject"`
	Questions []Question  `json:"questions"`
	CreatedAt time.Time   `json:"createdAt"` // UTC
	UpdatedAt time.Time   `json:"updatedAt"` // UTC
}

// Result is the outcome of grading an answer set.
type Result struct {
	Score          float64 `json:"score"`
	TotalQuestions int     `json:"totalQuestions"`
	CorrectAnswers int     `json:"correctAnswers"`
}

// Grade scores answers against the quiz questions: answers[i] answers Questions[i].
// Extra answers are ignored; missing and null ones count as wrong. A quiz without questions scores 0.
func (q Quiz) Grade(answers []null.Int) Result {
	res := Result{TotalQuestions: len(q.Questions)}
	for i, question := range q.Questions {
		if i < len(answers) && answers[i].Valid && question.IsCorrect(answers[i].Int) {
			res.CorrectAnswers++
		}
	}
	if res.TotalQuestions > 0 {
		res.Score = 100 * float64(res.CorrectAnswers) / float64(res.TotalQuestions)
	}
	return res
}

func cleanQuestions(questions []Question) {
	for i := range questions {
		questions[i].Text = core.CleanString(questions[i].Text)
		for j := range questions[i].Options {
			questions[i].Options[j] = core.CleanString(questions[i].Options[j])
		}
	}
}

// NewQuiz contains information needed to create a new Quiz.
type NewQuiz struct {
	Title     string     `json:"title" validate:"notblank"`
	Subject   string     `json:"subject" validate:"required"`
	Questions []Question `json:"questions" validate:"required,min=1,dive"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	nq.Subject = core.CleanString(nq.Subject)
	cleanQuestions(nq.Questions)
	return validate.Struct(nq)
}

// QuestionList is the optional questions field of UpdateQuiz.
// An explicit null is kept apart from an absent field so it can be rejected.
type QuestionList struct {
	Questions []Question
	Present   bool
}

func (ql *QuestionList) UnmarshalJSON(data []byte) error {
	ql.Present = true
	if bytes.Equal(data, []byte("null")) {
		ql.Questions = nil
		return nil
	}
	return json.Unmarshal(data, &ql.Questions)
}

func (ql QuestionList) MarshalJSON() ([]byte, error) {
	if !ql.Present {
		return []byte("null"), nil
	}
	return json.Marshal(ql.Questions)
}

type questionSet struct {
	Questions []Question `json:"questions" validate:"required,min=1,dive"`
}

// UpdateQuiz defines what information may be provided to modify an existing Quiz.
// Provided questions replace the existing ones.
type UpdateQuiz struct {
	Title     core.OptionalString `json:"title"`
	Questions QuestionList        `json:"questions"`
}

func (uq *UpdateQuiz) Validate(validate *validator.Validate) error {
	uq.Title.Clean()
	if uq.Title.Present && (!uq.Title.Value.Valid || uq.Title.Value.String == "") {
		return core.NewValidationError(
			errors.New("invalid quiz"),
			core.FieldError{Field: "title", Error: "this field cannot be blank"},
		)
	}
	if uq.Questions.Present {
		cleanQuestions(uq.Questions.Questions)
		return validate.Struct(questionSet{Questions: uq.Questions.Questions})
	}
	return nil
}

func (uq UpdateQuiz) apply(q Quiz) Quiz {
	if uq.Title.Present {
		q.Title = uq.Title.Value.String
	}
	if uq.Questions.Present {
		q.Questions = uq.Questions.Questions
	}
	return q
}

// Submission is a set of answers to a quiz: the index of the chosen option, per question.
// A null answer leaves the question unanswered.
type Submission struct {
	Answers []null.Int `json:"answers" validate:"required"`
}

func (s *Submission) Validate(validate *validator.Validate) error {
	return validate.Struct(s)
}
