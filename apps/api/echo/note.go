package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/note"
)

const uploadField = "file"

type noteApi struct {
	svc      note.Service
	validate *validator.Validate
}

func registerNoteAPI(g *echo.Group, svc note.Service, validate *validator.Validate, maxUploadBytes int64) {
	api := noteApi{
		svc:      svc,
		validate: validate,
	}

	ng := g.Group("/notes")
	ng.GET("/subject/:subjectId", api.query)
	ng.POST("", api.create)
	ng.GET("/:id", api.retrieve)
	ng.PUT("/:id", api.update)
	ng.DELETE("/:id", api.destroy)
	ng.POST("/:id/upload", api.upload, bodyLimit(maxUploadBytes))
}

func (api *noteApi) query(ctx echo.Context) error {
	notes, err := api.svc.QueryBySubject(ctx.Request().Context(), ctx.Param("subjectId"), paramOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying notes")
	}
	return ctx.JSON(http.StatusOK, notes)
}

func (api *noteApi) create(ctx echo.Context) error {
	var data note.NewNote
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNote")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	n, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating note")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *noteApi) retrieve(ctx echo.Context) error {
	n, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding note by ID")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *noteApi) update(ctx echo.Context) error {
	var data note.UpdateNote
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateNote")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	n, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating note")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *noteApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting note")
	}
	return ctx.JSON(http.StatusOK, msgResponse{Msg: "Note removed"})
}

func (api *noteApi) upload(ctx echo.Context) error {
	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		switch err {
		case http.ErrMissingFile, http.ErrNotMultipart, http.ErrMissingBoundary:
			return core.ErrNoFile
		}
		return errors.Wrap(err, "reading uploaded file")
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	n, err := api.svc.AttachFile(ctx.Request().Context(), ctx.Param("id"), note.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Content:     f,
	})
	if err != nil {
		return errors.Wrap(err, "attaching file")
	}
	return ctx.JSON(http.StatusOK, uploadResponse{
		Msg:     "File uploaded successfully",
		FileURL: n.FileURL.String,
		FileKey: n.FileKey.String,
	})
}

type uploadResponse struct {
	Msg     string `json:"msg"`
	FileURL string `json:"fileUrl"`
	FileKey string `json:"fileKey"`
}
