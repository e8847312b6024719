package echoapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/subject"
	"github.com/trezcool/soma/testutil"
)

func Test_subjectApi_query(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, "user1")

	now := time.Now()
	maths := testutil.CreateSubject(t, app.repos.Subjects, "Maths", "numbers", now.Add(2*time.Hour))
	bio := testutil.CreateSubject(t, app.repos.Subjects, "biology", "", now.Add(1*time.Hour))
	chem := testutil.CreateSubject(t, app.repos.Subjects, "Chemistry", "", now.Add(3*time.Hour))

	tests := []httpTest{
		{
			name:     "default ordering by name",
			path:     "/api/notes/subjects",
			wantData: marchallList(t, bio, chem, maths),
		},
		{
			name:     "name descending",
			path:     "/api/notes/subjects?ordering=-name",
			wantData: marchallList(t, maths, chem, bio),
		},
		{
			name:     "createdAt",
			path:     "/api/notes/subjects?ordering=createdAt",
			wantData: marchallList(t, bio, maths, chem),
		},
		{
			name:     "unknown fields are ignored",
			path:     "/api/notes/subjects?ordering=password,-createdAt",
			wantData: marchallList(t, chem, maths, bio),
		},
		{
			name:     "blank fields are skipped",
			path:     "/api/notes/subjects?ordering=,%20-createdAt,-,",
			wantData: marchallList(t, chem, maths, bio),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
		tests[i].token = token
		tests[i].wantCode = http.StatusOK
	}
	runHTTPTests(t, app, tests)
}

func Test_subjectApi_create(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, "user1")

	t.Run("valid", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"name": "  History ", "description": "dates"})
		req, rec := newAuthRequest(http.MethodPost, "/api/notes/subjects", token, body)
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var subj subject.Subject
		unmarshal(t, rec, &subj)
		assert.True(t, core.IsValidID(subj.ID))
		assert.Equal(t, "History", subj.Name)
		assert.Equal(t, null.StringFrom("dates"), subj.Description)

		stored, err := app.repos.Subjects.GetSubject(context.Background(), subj.ID)
		require.NoError(t, err)
		assert.Equal(t, subj.Name, stored.Name)
	})

	tests := []httpTest{
		{
			name:     "blank name",
			body:     marchallObj(t, map[string]interface{}{"name": "   "}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, invalid(map[string]string{"name": "this field cannot be blank"})),
		},
		{
			name:     "malformed body",
			body:     []byte(`{"name": `),
			wantCode: http.StatusBadRequest,
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/notes/subjects"
		tests[i].token = token
	}
	runHTTPTests(t, app, tests)
}

func Test_subjectApi_retrieve(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, "user1")
	maths := testutil.CreateSubject(t, app.repos.Subjects, "Maths", "")
	notFound := marchallObj(t, msgBody{Msg: "Subject not found"})

	tests := []httpTest{
		{
			name:     "found",
			path:     "/api/notes/subjects/" + maths.ID,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, maths),
		},
		{
			name:     "unknown ID",
			path:     "/api/notes/subjects/" + core.NewID(),
			wantCode: http.StatusNotFound,
			wantData: notFound,
		},
		{
			name:     "malformed ID",
			path:     "/api/notes/subjects/not-an-id",
			wantCode: http.StatusNotFound,
			wantData: notFound,
		},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
		tests[i].token = token
	}
	runHTTPTests(t, app, tests)
}

func Test_subjectApi_update(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, "user1")
	ctx := context.Background()

	update := func(t *testing.T, id, body string) *subject.Subject {
		req, rec := newAuthRequest(http.MethodPut, "/api/notes/subjects/"+id, token, []byte(body))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			return nil
		}
		var subj subject.Subject
		unmarshal(t, rec, &subj)
		return &subj
	}

	t.Run("empty body changes nothing", func(t *testing.T) {
		maths := testutil.CreateSubject(t, app.repos.Subjects, "Maths", "numbers")
		subj := update(t, maths.ID, `{}`)
		require.NotNil(t, subj)
		assert.Equal(t, "Maths", subj.Name)
		assert.Equal(t, null.StringFrom("numbers"), subj.Description)
	})

	t.Run("null description clears it", func(t *testing.T) {
		maths := testutil.CreateSubject(t, app.repos.Subjects, "Maths", "numbers")
		subj := update(t, maths.ID, `{"description": null}`)
		require.NotNil(t, subj)
		assert.Equal(t, "Maths", subj.Name)
		assert.False(t, subj.Description.Valid)

		stored, err := app.repos.Subjects.GetSubject(ctx, maths.ID)
		require.NoError(t, err)
		assert.False(t, stored.Description.Valid)
	})

	t.Run("rename", func(t *testing.T) {
		maths := testutil.CreateSubject(t, app.repos.Subjects, "Maths", "numbers")
		subj := update(t, maths.ID, `{"name": " Algebra "}`)
		require.NotNil(t, subj)
		assert.Equal(t, "Algebra", subj.Name)
		assert.Equal(t, null.StringFrom("numbers"), subj.Description)
		assert.False(t, subj.UpdatedAt.Before(maths.UpdatedAt))
	})

	maths := testutil.CreateSubject(t, app.repos.Subjects, "Maths", "")
	nameErr := marchallObj(t, invalid(map[string]string{"name": "this field cannot be blank"}))
	tests := []httpTest{
		{
			name:     "null name",
			path:     "/api/notes/subjects/" + maths.ID,
			body:     []byte(`{"name": null}`),
			wantCode: http.StatusBadRequest,
			wantData: nameErr,
		},
		{
			name:     "blank name",
			path:     "/api/notes/subjects/" + maths.ID,
			body:     []byte(`{"name": "  "}`),
			wantCode: http.StatusBadRequest,
			wantData: nameErr,
		},
		{
			name:     "unknown subject",
			path:     "/api/notes/subjects/" + core.NewID(),
			body:     []byte(`{"name": "Physics"}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, msgBody{Msg: "Subject not found"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPut
		tests[i].token = token
	}
	runHTTPTests(t, app, tests)
}

func Test_subjectApi_destroy(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, "user1")
	maths := testutil.CreateSubject(t, app.repos.Subjects, "Maths", "")

	tests := []httpTest{
		{
			name:     "existing",
			path:     "/api/notes/subjects/" + maths.ID,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, msgBody{Msg: "Subject removed"}),
		},
		{
			name:     "already removed",
			path:     "/api/notes/subjects/" + maths.ID,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, msgBody{Msg: "Subject not found"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodDelete
		tests[i].token = token
	}
	runHTTPTests(t, app, tests)

	_, err := app.repos.Subjects.GetSubject(context.Background(), maths.ID)
	assert.Equal(t, subject.ErrNotFound, err)
}
