package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/progress"
	"github.com/trezcool/soma/core/quiz"
	"github.com/trezcool/soma/testutil"
)

func fourQuestions() []quiz.Question {
	return []quiz.Question{
		testutil.Question("q1", 4, 0),
		testutil.Question("q2", 4, 1),
		testutil.Question("q3", 4, 2),
		testutil.Question("q4", 4, 3),
	}
}

func Test_quizApi_create(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, "user1")
	maths := testutil.CreateSubject(t, app.repos.Subjects, "Maths", "")

	t.Run("valid", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"title":     "Basics",
			"subject":   maths.ID,
			"questions": fourQuestions(),
		})
		req, rec := newAuthRequest(http.MethodPost, "/api/quizzes", token, body)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var q quiz.Quiz
		unmarshal(t, rec, &q)
		assert.True(t, core.IsValidID(q.ID))
		assert.Equal(t, "Maths", q.Subject.Name)
		assert.Equal(t, fourQuestions(), q.Questions)
	})

	tests := []httpTest{
		{
			name: "no questions",
			body: marchallObj(t, map[string]interface{}{
				"title":     "Empty",
				"subject":   maths.ID,
				"questions": []quiz.Question{},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, invalid(map[string]string{
				"questions": "questions must contain at least 1 item",
			})),
		},
		{
			name: "correct answer out of range",
			body: marchallObj(t, map[string]interface{}{
				"title":     "Broken",
				"subject":   maths.ID,
				"questions": []quiz.Question{testutil.Question("q1", 2, 0), testutil.Question("q2", 2, 2)},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, invalid(map[string]string{
				"questions[1].correctAnswer": "correctAnswer must be the index of one of the options",
			})),
		},
		{
			name: "unknown subject",
			body: marchallObj(t, map[string]interface{}{
				"title":     "Lost",
				"subject":   core.NewID(),
				"questions": fourQuestions(),
			}),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, msgBody{Msg: "Subject not found"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/quizzes"
		tests[i].token = token
	}
	runHTTPTests(t, app, tests)
}

func Test_quizApi_update(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, "user1")
	maths := testutil.CreateSubject(t, app.repos.Subjects, "Maths", "")
	q := testutil.CreateQuiz(t, app.repos.Quizzes, maths, "Basics", fourQuestions()...)

	t.Run("replace questions", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"questions": []quiz.Question{testutil.Question("only", 3, 2)}})
		req, rec := newAuthRequest(http.MethodPut, "/api/quizzes/"+q.ID, token, body)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated quiz.Quiz
		unmarshal(t, rec, &updated)
		assert.Equal(t, "Basics", updated.Title)
		assert.Equal(t, []quiz.Question{testutil.Question("only", 3, 2)}, updated.Questions)
	})

	tests := []httpTest{
		{
			name:     "null title",
			path:     "/api/quizzes/" + q.ID,
			body:     []byte(`{"title": null}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, invalid(map[string]string{"title": "this field cannot be blank"})),
		},
		{
			name:     "null questions",
			path:     "/api/quizzes/" + q.ID,
			body:     []byte(`{"questions": null}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, invalid(map[string]string{"questions": "this field is required"})),
		},
		{
			name:     "unknown quiz",
			path:     "/api/quizzes/" + core.NewID(),
			body:     []byte(`{"title": "x"}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, msgBody{Msg: "Quiz not found"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPut
		tests[i].token = token
	}
	runHTTPTests(t, app, tests)
}

func submit(t *testing.T, app testApp, token, quizID string, answers []int) quiz.Result {
	body := marchallObj(t, map[string]interface{}{"answers": answers})
	req, rec := newAuthRequest(http.MethodPost, "/api/quizzes/"+quizID+"/submit", token, body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res quiz.Result
	unmarshal(t, rec, &res)
	return res
}

func Test_quizApi_submit(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, "user1")
	ctx := context.Background()
	maths := testutil.CreateSubject(t, app.repos.Subjects, "Maths", "")
	q := testutil.CreateQuiz(t, app.repos.Quizzes, maths, "Basics", fourQuestions()...)

	res := submit(t, app, token, q.ID, []int{0, 1, 2, 2})
	assert.Equal(t, quiz.Result{Score: 75, TotalQuestions: 4, CorrectAnswers: 3}, res)

	// resubmitting overwrites the result
	res = submit(t, app, token, q.ID, []int{0, 1, 2, 3, 1, 1})
	assert.Equal(t, quiz.Result{Score: 100, TotalQuestions: 4, CorrectAnswers: 4}, res)

	p, err := app.repos.Progress.GetProgress(ctx, progress.Key{UserID: "user1", SubjectID: maths.ID})
	require.NoError(t, err)
	require.Len(t, p.QuizResults, 1)
	assert.Equal(t, q.ID, p.QuizResults[0].Quiz.ID)
	assert.Equal(t, "Basics", p.QuizResults[0].Quiz.Title)
	assert.Equal(t, float64(100), p.QuizResults[0].Score)

	zeros := testutil.CreateQuiz(t, app.repos.Quizzes, maths, "Zeros", testutil.Question("q1", 2, 0), testutil.Question("q2", 2, 0))

	tests := []httpTest{
		{
			name:     "null answers are wrong",
			path:     "/api/quizzes/" + zeros.ID + "/submit",
			body:     []byte(`{"answers": [null, null]}`),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, quiz.Result{Score: 0, TotalQuestions: 2}),
		},
		{
			name:     "null and given answers",
			path:     "/api/quizzes/" + zeros.ID + "/submit",
			body:     []byte(`{"answers": [null, 0]}`),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, quiz.Result{Score: 50, TotalQuestions: 2, CorrectAnswers: 1}),
		},
		{
			name:     "missing answers",
			path:     "/api/quizzes/" + q.ID + "/submit",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, invalid(map[string]string{"answers": "this field is required"})),
		},
		{
			name:     "empty answers",
			path:     "/api/quizzes/" + q.ID + "/submit",
			body:     []byte(`{"answers": []}`),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, quiz.Result{Score: 0, TotalQuestions: 4}),
		},
		{
			name:     "unknown quiz",
			path:     "/api/quizzes/" + core.NewID() + "/submit",
			body:     []byte(`{"answers": [0]}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, msgBody{Msg: "Quiz not found"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].token = getToken(t, app.conf, "user2")
	}
	runHTTPTests(t, app, tests)
}

func Test_quizApi_destroy(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	maths := testutil.CreateSubject(t, app.repos.Subjects, "Maths", "")
	q := testutil.CreateQuiz(t, app.repos.Quizzes, maths, "Basics", fourQuestions()...)
	kept := testutil.CreateQuiz(t, app.repos.Quizzes, maths, "Advanced", fourQuestions()...)

	for _, usr := range []string{"user1", "user2"} {
		token := getToken(t, app.conf, usr)
		submit(t, app, token, q.ID, []int{0})
		submit(t, app, token, kept.ID, []int{0})
	}

	runHTTPTests(t, app, []httpTest{
		{
			name:     "existing",
			method:   http.MethodDelete,
			path:     "/api/quizzes/" + q.ID,
			token:    getToken(t, app.conf, "user1"),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, msgBody{Msg: "Quiz removed"}),
		},
		{
			name:     "already removed",
			method:   http.MethodDelete,
			path:     "/api/quizzes/" + q.ID,
			token:    getToken(t, app.conf, "user1"),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, msgBody{Msg: "Quiz not found"}),
		},
	})

	// results of the removed quiz are gone for every user
	for _, usr := range []string{"user1", "user2"} {
		p, err := app.repos.Progress.GetProgress(ctx, progress.Key{UserID: usr, SubjectID: maths.ID})
		require.NoError(t, err)
		require.Len(t, p.QuizResults, 1, usr)
		assert.Equal(t, kept.ID, p.QuizResults[0].Quiz.ID)
	}
}
