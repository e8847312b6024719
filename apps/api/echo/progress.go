package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core/progress"
)

type progressApi struct {
	svc progress.Service
}

func registerProgressAPI(g *echo.Group, svc progress.Service) {
	api := progressApi{svc: svc}

	pg := g.Group("/progress")
	pg.GET("", api.query)
	pg.GET("/subject/:subjectId", api.retrieve)
	pg.PUT("/note/:noteId/complete", api.completeNote)
	pg.PUT("/note/:noteId/uncomplete", api.uncompleteNote)
}

func (api *progressApi) query(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	records, err := api.svc.QueryAll(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "querying progress")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *progressApi) retrieve(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.GetForSubject(ctx.Request().Context(), userID, ctx.Param("subjectId"))
	if err != nil {
		return errors.Wrap(err, "getting subject progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *progressApi) completeNote(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.CompleteNote(ctx.Request().Context(), userID, ctx.Param("noteId"))
	if err != nil {
		return errors.Wrap(err, "completing note")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *progressApi) uncompleteNote(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.UncompleteNote(ctx.Request().Context(), userID, ctx.Param("noteId"))
	if err != nil {
		return errors.Wrap(err, "uncompleting note")
	}
	return ctx.JSON(http.StatusOK, p)
}
