package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/note"
	"github.com/trezcool/soma/core/progress"
	"github.com/trezcool/soma/core/quiz"
	"github.com/trezcool/soma/core/subject"
	"github.com/trezcool/soma/storage/database"
	boltrepos "github.com/trezcool/soma/storage/database/boltdb"
	sqlxrepos "github.com/trezcool/soma/storage/database/sqlx"
)

const TestSecretKey = "test-secret-key"

// Repos groups the repositories of one backend.
type Repos struct {
	Subjects subject.Repository
	Notes    note.Repository
	Quizzes  quiz.Repository
	Progress progress.Repository
}

// NewConfig returns the app config in test mode.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Debug = false
	conf.SecretKey = TestSecretKey
	conf.Server.JWTExpirationDelta = time.Hour
	return conf
}

// OpenBoltRepos returns repositories backed by a fresh bolt database, removed when the test ends.
func OpenBoltRepos(t *testing.T) Repos {
	t.Helper()
	db, err := boltrepos.Open(filepath.Join(t.TempDir(), "soma.db"))
	if err != nil {
		t.Fatalf("boltrepos.Open(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return Repos{
		Subjects: boltrepos.NewSubjectRepository(db),
		Notes:    boltrepos.NewNoteRepository(db),
		Quizzes:  boltrepos.NewQuizRepository(db),
		Progress: boltrepos.NewProgressRepository(db),
	}
}

// PrepareDB opens the postgres test database, migrates and empties it.
// The test is skipped when postgres is not reachable.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := NewConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		t.Skipf("postgres not available: %v", err)
	}

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("database.Migrate(): %v", err)
	}
	if _, err = db.Exec(`TRUNCATE quiz_results, progress_notes, progress, quizzes, notes, subjects`); err != nil {
		t.Fatalf("truncating tables: %v", err)
	}
	return db
}

// SQLRepos returns the postgres repositories of db.
func SQLRepos(db *sqlx.DB) Repos {
	return Repos{
		Subjects: sqlxrepos.NewSubjectRepository(db),
		Notes:    sqlxrepos.NewNoteRepository(db),
		Quizzes:  sqlxrepos.NewQuizRepository(db),
		Progress: sqlxrepos.NewProgressRepository(db),
	}
}

func tstamp(createdAt []time.Time) time.Time {
	if len(createdAt) > 0 {
		return createdAt[0].UTC().Truncate(time.Microsecond)
	}
	return core.Now()
}

func CreateSubject(t *testing.T, repo subject.Repository, name, description string, createdAt ...time.Time) subject.Subject {
	t.Helper()
	ts := tstamp(createdAt)
	s := subject.Subject{
		Name:      name,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if description != "" {
		s.Description = null.StringFrom(description)
	}
	s, err := repo.CreateSubject(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateSubject(): %v", err)
	}
	return s
}

func CreateNote(t *testing.T, repo note.Repository, subj subject.Subject, title, content string, createdAt ...time.Time) note.Note {
	t.Helper()
	ts := tstamp(createdAt)
	n, err := repo.CreateNote(context.Background(), note.Note{
		Title:     title,
		Content:   content,
		Subject:   subj.Ref(),
		CreatedAt: ts,
		UpdatedAt: ts,
	})
	if err != nil {
		t.Fatalf("CreateNote(): %v", err)
	}
	return n
}

func CreateQuiz(t *testing.T, repo quiz.Repository, subj subject.Subject, title string, questions ...quiz.Question) quiz.Quiz {
	t.Helper()
	ts := core.Now()
	if questions == nil {
		questions = []quiz.Question{}
	}
	q, err := repo.CreateQuiz(context.Background(), quiz.Quiz{
		Title:     title,
		Subject:   subj.Ref(),
		Questions: questions,
		CreatedAt: ts,
		UpdatedAt: ts,
	})
	if err != nil {
		t.Fatalf("CreateQuiz(): %v", err)
	}
	return q
}

// Question returns a question whose options are named after their index.
func Question(text string, nOptions, correct int) quiz.Question {
	opts := make([]string, nOptions)
	for i := range opts {
		opts[i] = string(rune('A' + i))
	}
	return quiz.Question{Text: text, Options: opts, CorrectOption: correct}
}
