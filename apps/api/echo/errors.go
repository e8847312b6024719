package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
)

const invalidRequestMsg = "invalid request"

var errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var body interface{}

		switch origErr := errors.Cause(err).(type) {
		case *core.NotFoundError:
			code = http.StatusNotFound
			body = echo.Map{"msg": origErr.Message}
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				body = echo.Map{"msg": origErr.Message}
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			body = echo.Map{"msg": origErr.Message}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			body = echo.Map{"msg": invalidRequestMsg, "errors": core.TranslateErrors(origErr, translator)}
		case *core.ValidationError:
			code = http.StatusBadRequest
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				body = echo.Map{"msg": invalidRequestMsg, "errors": fldErrs}
			} else {
				body = echo.Map{"msg": origErr.Error()}
			}
		default:
			if origErr == core.ErrNoFile {
				code = http.StatusBadRequest
				body = echo.Map{"msg": origErr.Error()}
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := "Server error"
			logger.Error(msg, errors.Wrap(err, msg), contextPrincipal(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}

			if ctx.Echo().Debug {
				msg = err.Error()
			}
			sendError(ctx, code, func() error { return ctx.String(code, msg) })
			return
		}

		sendError(ctx, code, func() error { return ctx.JSON(code, body) })
	}
}

func sendError(ctx echo.Context, code int, send func() error) {
	if ctx.Response().Committed {
		return
	}
	var err error
	if ctx.Request().Method == http.MethodHead { // Issue #608
		err = ctx.NoContent(code)
	} else {
		err = send()
	}
	if err != nil {
		ctx.Echo().Logger.Error(err)
	}
}
