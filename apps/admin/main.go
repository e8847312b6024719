package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/subject"
	"github.com/trezcool/soma/storage/database"
	boltrepos "github.com/trezcool/soma/storage/database/boltdb"
	sqlxrepos "github.com/trezcool/soma/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	os.Exit(run())
}

// run returns the exit code; deferred closes must run before os.Exit.
func run() int {
	conf := core.NewConfig()

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	// set up DB
	var db *sql.DB
	var subjRepo subject.Repository
	switch conf.Database.Engine {
	case core.EnginePostgres:
		sqlxDB, err := openPostgres(conf)
		errAndDie(err)
		defer sqlxDB.Close()
		db = sqlxDB.DB
		subjRepo = sqlxrepos.NewSubjectRepository(sqlxDB)
	case core.EngineBolt:
		boltDB, err := boltrepos.Open(conf.Database.BoltPath)
		errAndDie(err)
		defer boltDB.Close()
		subjRepo = boltrepos.NewSubjectRepository(boltDB)
	default:
		logger.Fatalf("unknown database engine %q", conf.Database.Engine)
	}

	// start CLI
	cli := commandLine{
		db:       db,
		subjSvc:  subject.NewService(subjRepo),
		validate: validate,
		out:      os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		return 1
	}
	return 0
}

func openPostgres(conf *core.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
