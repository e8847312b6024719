package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/note"
	"github.com/trezcool/soma/core/progress"
	"github.com/trezcool/soma/core/quiz"
	"github.com/trezcool/soma/core/subject"
)

// RunRepositoryTests checks the behaviour shared by every storage backend.
// newRepos must return repositories over an empty database.
func RunRepositoryTests(t *testing.T, newRepos func(t *testing.T) Repos) {
	t.Run("subjects", func(t *testing.T) { testSubjects(t, newRepos(t)) })
	t.Run("notes", func(t *testing.T) { testNotes(t, newRepos(t)) })
	t.Run("quizzes", func(t *testing.T) { testQuizzes(t, newRepos(t)) })
	t.Run("progress", func(t *testing.T) { testProgress(t, newRepos(t)) })
	t.Run("progress concurrent creation", func(t *testing.T) { testConcurrentProgress(t, newRepos(t)) })
	t.Run("quiz results removed during updates", func(t *testing.T) { testConcurrentResultRemoval(t, newRepos(t)) })
}

func subjectNames(subjects []subject.Subject) []string {
	names := make([]string, 0, len(subjects))
	for _, s := range subjects {
		names = append(names, s.Name)
	}
	return names
}

func testSubjects(t *testing.T, repos Repos) {
	ctx := context.Background()
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	bio := CreateSubject(t, repos.Subjects, "Biology", "", base.Add(2*time.Hour))
	CreateSubject(t, repos.Subjects, "Algebra", "x", base.Add(time.Hour))
	CreateSubject(t, repos.Subjects, "Chemistry", "", base)

	got, err := repos.Subjects.QuerySubjects(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Algebra", "Biology", "Chemistry"}, subjectNames(got))

	got, err = repos.Subjects.QuerySubjects(ctx, []core.DBOrdering{{Field: "created_at"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Biology", "Algebra", "Chemistry"}, subjectNames(got))

	got1, err := repos.Subjects.GetSubject(ctx, bio.ID)
	require.NoError(t, err)
	assert.Equal(t, bio.Name, got1.Name)
	assert.False(t, got1.Description.Valid)
	assert.True(t, bio.CreatedAt.Equal(got1.CreatedAt))

	bio.Name = "Life sciences"
	_, err = repos.Subjects.UpdateSubject(ctx, bio)
	require.NoError(t, err)
	got1, err = repos.Subjects.GetSubject(ctx, bio.ID)
	require.NoError(t, err)
	assert.Equal(t, "Life sciences", got1.Name)

	require.NoError(t, repos.Subjects.DeleteSubject(ctx, bio.ID))
	for _, id := range []string{bio.ID, core.NewID(), "malformed"} {
		_, err = repos.Subjects.GetSubject(ctx, id)
		assert.Equal(t, subject.ErrNotFound, errors.Cause(err), id)
		assert.Equal(t, subject.ErrNotFound, errors.Cause(repos.Subjects.DeleteSubject(ctx, id)), id)
	}
	_, err = repos.Subjects.UpdateSubject(ctx, bio)
	assert.Equal(t, subject.ErrNotFound, errors.Cause(err))
}

func testNotes(t *testing.T, repos Repos) {
	ctx := context.Background()
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	maths := CreateSubject(t, repos.Subjects, "Maths", "")
	other := CreateSubject(t, repos.Subjects, "Other", "")
	older := CreateNote(t, repos.Notes, maths, "Limits", "...", base)
	newer := CreateNote(t, repos.Notes, maths, "Series", "...", base.Add(time.Hour))
	CreateNote(t, repos.Notes, other, "Elsewhere", "...")

	got, err := repos.Notes.QueryNotes(ctx, maths.ID, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
	assert.Equal(t, subject.Ref{ID: maths.ID, Name: "Maths"}, got[0].Subject)

	got, err = repos.Notes.QueryNotes(ctx, "malformed", nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	older.FileKey = null.StringFrom("notes/" + older.ID + "/f.pdf")
	older.FileURL = null.StringFrom("http://files.test/notes/" + older.ID + "/f.pdf")
	_, err = repos.Notes.UpdateNote(ctx, older)
	require.NoError(t, err)
	n, err := repos.Notes.GetNote(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.FileKey, n.FileKey)
	assert.Equal(t, older.FileURL, n.FileURL)

	// the subject is resolved at read time
	require.NoError(t, repos.Subjects.DeleteSubject(ctx, maths.ID))
	n, err = repos.Notes.GetNote(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, subject.Ref{ID: maths.ID}, n.Subject)

	require.NoError(t, repos.Notes.DeleteNote(ctx, older.ID))
	_, err = repos.Notes.GetNote(ctx, older.ID)
	assert.Equal(t, note.ErrNotFound, errors.Cause(err))
	_, err = repos.Notes.GetNote(ctx, "malformed")
	assert.Equal(t, note.ErrNotFound, errors.Cause(err))
}

func testQuizzes(t *testing.T, repos Repos) {
	ctx := context.Background()
	maths := CreateSubject(t, repos.Subjects, "Maths", "")
	q := CreateQuiz(t, repos.Quizzes, maths, "Basics", Question("1+1", 3, 2), Question("2+2", 4, 3))

	got, err := repos.Quizzes.GetQuiz(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.Questions, got.Questions)
	assert.Equal(t, subject.Ref{ID: maths.ID, Name: "Maths"}, got.Subject)

	q.Questions = []quiz.Question{Question("3+3", 2, 0)}
	_, err = repos.Quizzes.UpdateQuiz(ctx, q)
	require.NoError(t, err)
	got, err = repos.Quizzes.GetQuiz(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.Questions, got.Questions)

	list, err := repos.Quizzes.QueryQuizzes(ctx, maths.ID, []core.DBOrdering{{Field: "title", Ascending: true}})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repos.Quizzes.DeleteQuiz(ctx, q.ID))
	assert.Equal(t, quiz.ErrNotFound, errors.Cause(repos.Quizzes.DeleteQuiz(ctx, q.ID)))
}

func testProgress(t *testing.T, repos Repos) {
	ctx := context.Background()
	maths := CreateSubject(t, repos.Subjects, "Maths", "")
	physics := CreateSubject(t, repos.Subjects, "Physics", "")
	n1 := CreateNote(t, repos.Notes, maths, "Limits", "...")
	n2 := CreateNote(t, repos.Notes, maths, "Series", "...")
	q := CreateQuiz(t, repos.Quizzes, maths, "Basics", Question("1+1", 3, 2))
	key := progress.Key{UserID: "user1", SubjectID: maths.ID}

	_, err := repos.Progress.GetProgress(ctx, key)
	assert.Equal(t, progress.ErrNotFound, errors.Cause(err))
	_, err = repos.Progress.GetProgress(ctx, progress.Key{UserID: "user1", SubjectID: "malformed"})
	assert.Equal(t, progress.ErrNotFound, errors.Cause(err))

	created, err := repos.Progress.GetOrCreateProgress(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Maths", created.Subject.Name)
	assert.Empty(t, created.NotesCompleted)

	takenAt := core.Now()
	p, err := repos.Progress.ModifyProgress(ctx, key, func(p *progress.Progress) error {
		p.CompleteNote(n2.ID)
		p.CompleteNote(n1.ID)
		p.RecordQuizResult(q.ID, 75, takenAt)
		p.Touch(takenAt)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, p.ID)
	assert.Equal(t, []progress.NoteRef{{ID: n2.ID, Title: "Series"}, {ID: n1.ID, Title: "Limits"}}, p.NotesCompleted)
	require.Len(t, p.QuizResults, 1)
	assert.Equal(t, progress.QuizRef{ID: q.ID, Title: "Basics"}, p.QuizResults[0].Quiz)
	assert.True(t, takenAt.Equal(p.QuizResults[0].TakenAt))

	// an aborted change is not saved
	abort := errors.New("abort")
	_, err = repos.Progress.ModifyProgress(ctx, key, func(p *progress.Progress) error {
		p.UncompleteNote(n1.ID)
		return abort
	})
	assert.Equal(t, abort, errors.Cause(err))

	found, err := repos.Progress.FindProgressByNote(ctx, "user1", n1.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
	_, err = repos.Progress.FindProgressByNote(ctx, "user2", n1.ID)
	assert.Equal(t, progress.ErrNoteNotTracked, errors.Cause(err))

	// titles of deleted records resolve empty
	require.NoError(t, repos.Notes.DeleteNote(ctx, n2.ID))
	p, err = repos.Progress.GetProgress(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []progress.NoteRef{{ID: n2.ID}, {ID: n1.ID, Title: "Limits"}}, p.NotesCompleted)

	_, err = repos.Progress.GetOrCreateProgress(ctx, progress.Key{UserID: "user1", SubjectID: physics.ID})
	require.NoError(t, err)
	_, err = repos.Progress.ModifyProgress(ctx, progress.Key{UserID: "user2", SubjectID: maths.ID}, func(p *progress.Progress) error {
		p.RecordQuizResult(q.ID, 50, core.Now())
		return nil
	})
	require.NoError(t, err)

	all, err := repos.Progress.QueryProgress(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	changed, err := repos.Progress.RemoveQuizResults(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	p, err = repos.Progress.GetProgress(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, p.QuizResults)
	assert.Len(t, p.NotesCompleted, 2)

	changed, err = repos.Progress.RemoveQuizResults(ctx, "malformed")
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}

func testConcurrentProgress(t *testing.T, repos Repos) {
	ctx := context.Background()
	maths := CreateSubject(t, repos.Subjects, "Maths", "")
	key := progress.Key{UserID: "user1", SubjectID: maths.ID}

	const n = 8
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := repos.Progress.GetOrCreateProgress(ctx, key)
			ids[i], errs[i] = p.ID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	all, err := repos.Progress.QueryProgress(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testConcurrentResultRemoval(t *testing.T, repos Repos) {
	ctx := context.Background()
	maths := CreateSubject(t, repos.Subjects, "Maths", "")
	removed := CreateQuiz(t, repos.Quizzes, maths, "Removed", Question("1+1", 3, 2))
	kept := CreateQuiz(t, repos.Quizzes, maths, "Kept", Question("2+2", 3, 1))

	users := []string{"user1", "user2", "user3", "user4"}
	for _, user := range users {
		_, err := repos.Progress.ModifyProgress(ctx, progress.Key{UserID: user, SubjectID: maths.ID}, func(p *progress.Progress) error {
			p.RecordQuizResult(removed.ID, 50, core.Now())
			return nil
		})
		require.NoError(t, err)
	}

	const rounds = 20
	errs := make(chan error, len(users)*rounds+1)
	var wg sync.WaitGroup
	for _, user := range users {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				_, err := repos.Progress.ModifyProgress(ctx, progress.Key{UserID: user, SubjectID: maths.ID}, func(p *progress.Progress) error {
					p.RecordQuizResult(kept.ID, float64(i), core.Now())
					return nil
				})
				errs <- err
			}
		}(user)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := repos.Progress.RemoveQuizResults(ctx, removed.ID)
		errs <- err
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	for _, user := range users {
		p, err := repos.Progress.GetProgress(ctx, progress.Key{UserID: user, SubjectID: maths.ID})
		require.NoError(t, err)
		require.Len(t, p.QuizResults, 1, user)
		assert.Equal(t, kept.ID, p.QuizResults[0].Quiz.ID, user)
	}
}
