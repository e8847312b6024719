package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/note"
	"github.com/trezcool/soma/core/progress"
	"github.com/trezcool/soma/core/quiz"
	"github.com/trezcool/soma/core/subject"
)

type (
	Deps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		SubjectSvc     subject.Service
		NoteSvc        note.Service
		QuizSvc        quiz.Service
		ProgressSvc    progress.Service
		FilesRoot      string // uploaded files served under /files when set
		DisableReqLogs bool
	}

	Server struct {
		conf     *core.Config
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps *Deps) *Server {
	s := &Server{
		conf:     deps.Conf,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	if !deps.Conf.TestMode {
		signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	}
	s.setup(deps)
	return s
}

func (s *Server) setup(deps *Deps) {
	conf := deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: conf.Server.CORSAllowOrigins}))
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	if deps.FilesRoot != "" {
		s.app.Static("/files", deps.FilesRoot)
	}

	g := s.app.Group("/api", middleware.JWTWithConfig(newJWTConfig(conf)))

	registerSubjectAPI(g, deps.SubjectSvc, deps.Validate)
	registerNoteAPI(g, deps.NoteSvc, deps.Validate, conf.Upload.MaxBytes)
	registerQuizAPI(g, deps.QuizSvc, deps.Validate)
	registerProgressAPI(g, deps.ProgressSvc)
}

// Start serves requests until the server is shut down. Failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// signalShutdown asks the app to shut down, unless a shutdown is already pending.
func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Study App API is running")
}

const orderingParam = "ordering"

// paramOrdering parses the "ordering" query param, e.g. "name,-createdAt".
// A leading "-" sorts descending. Field names are checked by the services.
func paramOrdering(ctx echo.Context) []core.DBOrdering {
	raw := ctx.QueryParam(orderingParam)
	if raw == "" {
		return nil
	}
	fields := strings.Split(raw, ",")
	ordering := make([]core.DBOrdering, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		name := strings.TrimPrefix(field, "-")
		if name == "" {
			continue
		}
		ordering = append(ordering, core.DBOrdering{Field: name, Ascending: name == field})
	}
	return ordering
}
