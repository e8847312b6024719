package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core/subject"
)

type subjectApi struct {
	svc      subject.Service
	validate *validator.Validate
}

func registerSubjectAPI(g *echo.Group, svc subject.Service, validate *validator.Validate) {
	api := subjectApi{
		svc:      svc,
		validate: validate,
	}

	sg := g.Group("/notes/subjects")
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
}

func (api *subjectApi) query(ctx echo.Context) error {
	subjects, err := api.svc.Query(ctx.Request().Context(), paramOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *subjectApi) create(ctx echo.Context) error {
	var data subject.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	subj, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subj)
}

func (api *subjectApi) retrieve(ctx echo.Context) error {
	subj, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding subject by ID")
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (api *subjectApi) update(ctx echo.Context) error {
	var data subject.UpdateSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	subj, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (api *subjectApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.JSON(http.StatusOK, msgResponse{Msg: "Subject removed"})
}

type msgResponse struct {
	Msg string `json:"msg"`
}
