package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core/quiz"
)

type quizApi struct {
	svc      quiz.Service
	validate *validator.Validate
}

func registerQuizAPI(g *echo.Group, svc quiz.Service, validate *validator.Validate) {
	api := quizApi{
		svc:      svc,
		validate: validate,
	}

	qg := g.Group("/quizzes")
	qg.GET("/subject/:subjectId", api.query)
	qg.POST("", api.create)
	qg.GET("/:id", api.retrieve)
	qg.PUT("/:id", api.update)
	qg.DELETE("/:id", api.destroy)
	qg.POST("/:id/submit", api.submit)
}

func (api *quizApi) query(ctx echo.Context) error {
	quizzes, err := api.svc.QueryBySubject(ctx.Request().Context(), ctx.Param("subjectId"), paramOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying quizzes")
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

func (api *quizApi) create(ctx echo.Context) error {
	var data quiz.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	q, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding quiz by ID")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *quizApi) update(ctx echo.Context) error {
	var data quiz.UpdateQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating quiz")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *quizApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	return ctx.JSON(http.StatusOK, msgResponse{Msg: "Quiz removed"})
}

func (api *quizApi) submit(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	var data quiz.Submission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Submit(ctx.Request().Context(), userID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting quiz")
	}
	return ctx.JSON(http.StatusOK, res)
}
