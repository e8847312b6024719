package progress_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/note"
	"github.com/trezcool/soma/core/progress"
	"github.com/trezcool/soma/core/subject"
	"github.com/trezcool/soma/testutil"
)

func setup(t *testing.T) (progress.Service, testutil.Repos) {
	repos := testutil.OpenBoltRepos(t)
	return progress.NewService(repos.Progress, repos.Subjects, repos.Notes), repos
}

func TestService_GetForSubject(t *testing.T) {
	svc, repos := setup(t)
	ctx := context.Background()
	subj := testutil.CreateSubject(t, repos.Subjects, "Maths", "")

	p, err := svc.GetForSubject(ctx, "user1", subj.ID)
	require.NoError(t, err)
	assert.Equal(t, "user1", p.UserID)
	assert.Equal(t, subject.Ref{ID: subj.ID, Name: "Maths"}, p.Subject)
	assert.Empty(t, p.NotesCompleted)
	assert.Empty(t, p.QuizResults)

	again, err := svc.GetForSubject(ctx, "user1", subj.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)

	other, err := svc.GetForSubject(ctx, "user2", subj.ID)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, other.ID)

	_, err = svc.GetForSubject(ctx, "user1", core.NewID())
	assert.Equal(t, subject.ErrNotFound, errors.Cause(err))

	all, err := svc.QueryAll(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	none, err := svc.QueryAll(ctx, "user3")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestService_GetForSubject_concurrent(t *testing.T) {
	svc, repos := setup(t)
	ctx := context.Background()
	subj := testutil.CreateSubject(t, repos.Subjects, "Maths", "")

	const n = 10
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := svc.GetForSubject(ctx, "user1", subj.ID)
			ids[i], errs[i] = p.ID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	all, err := svc.QueryAll(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestService_CompleteNote(t *testing.T) {
	svc, repos := setup(t)
	ctx := context.Background()
	subj := testutil.CreateSubject(t, repos.Subjects, "Maths", "")
	n1 := testutil.CreateNote(t, repos.Notes, subj, "Limits", "...")
	n2 := testutil.CreateNote(t, repos.Notes, subj, "Series", "...")

	_, err := svc.CompleteNote(ctx, "user1", n2.ID)
	require.NoError(t, err)
	_, err = svc.CompleteNote(ctx, "user1", n1.ID)
	require.NoError(t, err)
	p, err := svc.CompleteNote(ctx, "user1", n2.ID)
	require.NoError(t, err)

	assert.Equal(t, []progress.NoteRef{{ID: n2.ID, Title: "Series"}, {ID: n1.ID, Title: "Limits"}}, p.NotesCompleted)
	assert.False(t, p.LastAccessedAt.Before(p.CreatedAt))

	_, err = svc.CompleteNote(ctx, "user1", core.NewID())
	assert.Equal(t, note.ErrNotFound, errors.Cause(err))
}

func TestService_UncompleteNote(t *testing.T) {
	svc, repos := setup(t)
	ctx := context.Background()
	subj := testutil.CreateSubject(t, repos.Subjects, "Maths", "")
	n1 := testutil.CreateNote(t, repos.Notes, subj, "Limits", "...")
	n2 := testutil.CreateNote(t, repos.Notes, subj, "Series", "...")
	for _, id := range []string{n1.ID, n2.ID} {
		_, err := svc.CompleteNote(ctx, "user1", id)
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		userID  string
		noteID  string
		wantErr error
		want    []progress.NoteRef
	}{
		{name: "other user", userID: "user2", noteID: n1.ID, wantErr: progress.ErrNoteNotTracked},
		{name: "malformed", userID: "user1", noteID: "nope", wantErr: progress.ErrNoteNotTracked},
		{name: "completed", userID: "user1", noteID: n1.ID, want: []progress.NoteRef{{ID: n2.ID, Title: "Series"}}},
		{name: "already uncompleted", userID: "user1", noteID: n1.ID, wantErr: progress.ErrNoteNotTracked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svc.UncompleteNote(ctx, tt.userID, tt.noteID)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("UncompleteNote() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				assert.Equal(t, tt.want, p.NotesCompleted)
			}
		})
	}
}

func TestService_QuizResults(t *testing.T) {
	svc, repos := setup(t)
	ctx := context.Background()
	subj := testutil.CreateSubject(t, repos.Subjects, "Maths", "")
	q1 := testutil.CreateQuiz(t, repos.Quizzes, subj, "Basics", testutil.Question("1+1", 3, 2))
	q2 := testutil.CreateQuiz(t, repos.Quizzes, subj, "Advanced", testutil.Question("2+2", 3, 1))

	require.NoError(t, svc.RecordQuizResult(ctx, "user1", subj.ID, q1.ID, 75))
	require.NoError(t, svc.RecordQuizResult(ctx, "user1", subj.ID, q2.ID, 50))
	require.NoError(t, svc.RecordQuizResult(ctx, "user1", subj.ID, q1.ID, 100))
	require.NoError(t, svc.RecordQuizResult(ctx, "user2", subj.ID, q1.ID, 25))

	p, err := svc.GetForSubject(ctx, "user1", subj.ID)
	require.NoError(t, err)
	require.Len(t, p.QuizResults, 2)
	assert.Equal(t, progress.QuizRef{ID: q1.ID, Title: "Basics"}, p.QuizResults[0].Quiz)
	assert.Equal(t, 100.0, p.QuizResults[0].Score)
	assert.Equal(t, 50.0, p.QuizResults[1].Score)

	changed, err := svc.RemoveQuizResults(ctx, q1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	p, err = svc.GetForSubject(ctx, "user1", subj.ID)
	require.NoError(t, err)
	require.Len(t, p.QuizResults, 1)
	assert.Equal(t, q2.ID, p.QuizResults[0].Quiz.ID)

	changed, err = svc.RemoveQuizResults(ctx, q1.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}
