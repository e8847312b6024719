package di

import (
	"context"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/soma/apps/api/echo"
	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/note"
	"github.com/trezcool/soma/core/progress"
	"github.com/trezcool/soma/core/quiz"
	"github.com/trezcool/soma/core/subject"
	logsvc "github.com/trezcool/soma/services/logger"
	"github.com/trezcool/soma/services/objstore"
	"github.com/trezcool/soma/storage/database"
	boltrepos "github.com/trezcool/soma/storage/database/boltdb"
	sqlxrepos "github.com/trezcool/soma/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// DBCloser closes the database backing the repositories.
	DBCloser func() error

	reposResult struct {
		dig.Out
		Subjects subject.Repository
		Notes    note.Repository
		Quizzes  quiz.Repository
		Progress progress.Repository
		Closer   DBCloser
	}

	objectStoreResult struct {
		dig.Out
		Store     core.ObjectStore
		FilesRoot string `name:"filesRoot"`
	}

	serverParams struct {
		dig.In
		Conf        *core.Config
		Logger      core.Logger
		Validate    *validator.Validate
		Translator  ut.Translator
		SubjectSvc  subject.Service
		NoteSvc     note.Service
		QuizSvc     quiz.Service
		ProgressSvc progress.Service
		FilesRoot   string `name:"filesRoot"`
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func openPostgres(conf *core.Config) (reposResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return reposResult{}, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return reposResult{}, err
	}
	if err = database.Ping(ctx, db); err != nil {
		_ = db.Close()
		return reposResult{}, err
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return reposResult{}, err
	}
	return reposResult{
		Subjects: sqlxrepos.NewSubjectRepository(db),
		Notes:    sqlxrepos.NewNoteRepository(db),
		Quizzes:  sqlxrepos.NewQuizRepository(db),
		Progress: sqlxrepos.NewProgressRepository(db),
		Closer:   db.Close,
	}, nil
}

func openBolt(conf *core.Config) (reposResult, error) {
	db, err := boltrepos.Open(conf.Database.BoltPath)
	if err != nil {
		return reposResult{}, err
	}
	return reposResult{
		Subjects: boltrepos.NewSubjectRepository(db),
		Notes:    boltrepos.NewNoteRepository(db),
		Quizzes:  boltrepos.NewQuizRepository(db),
		Progress: boltrepos.NewProgressRepository(db),
		Closer:   db.Close,
	}, nil
}

// newRepositories sets up the database selected by conf.Database.Engine.
func newRepositories(conf *core.Config, loggerParam DBLoggerParam) reposResult {
	var res reposResult
	var err error
	switch conf.Database.Engine {
	case core.EnginePostgres:
		res, err = openPostgres(conf)
	case core.EngineBolt:
		res, err = openBolt(conf)
	default:
		err = errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}
	if err != nil {
		loggerParam.Logger.Fatal("setting up database: "+err.Error(), err)
	}
	return res
}

func newObjectStore(conf *core.Config, logger core.Logger) objectStoreResult {
	switch conf.Storage.Driver {
	case core.StorageB2:
		store, err := objstore.NewB2Store(context.Background(), conf.Storage.B2KeyID, conf.Storage.B2AppKey, conf.Storage.B2Bucket)
		if err != nil {
			logger.Fatal("setting up b2 storage: "+err.Error(), err)
		}
		return objectStoreResult{Store: store}
	case core.StorageDisk:
		store, err := objstore.NewDiskStore(conf.Storage.DiskRoot, conf.Storage.DiskBaseURL)
		if err != nil {
			logger.Fatal("setting up disk storage: "+err.Error(), err)
		}
		return objectStoreResult{Store: store, FilesRoot: store.Root()}
	}
	logger.Fatal("unknown storage driver: " + conf.Storage.Driver)
	return objectStoreResult{}
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)
	return validate
}

func newProgressRecorder(svc progress.Service) quiz.ProgressRecorder {
	return svc
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Deps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Validate:    p.Validate,
		Translator:  p.Translator,
		SubjectSvc:  p.SubjectSvc,
		NoteSvc:     p.NoteSvc,
		QuizSvc:     p.QuizSvc,
		ProgressSvc: p.ProgressSvc,
		FilesRoot:   p.FilesRoot,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newObjectStore))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(subject.NewService))
	must(c.Provide(note.NewService))
	must(c.Provide(progress.NewService))
	must(c.Provide(newProgressRecorder))
	must(c.Provide(quiz.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
