package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
	"github.com/trezcool/cems/core/profile"
)

var errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")

func isNotFound(err error) bool {
	return errors.Is(err, academic.ErrNotFound) || errors.Is(err, profile.ErrNotFound)
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		var (
			httpErr *echo.HTTPError
			vErrs   validator.ValidationErrors
			vErr    *core.ValidationError
		)
		switch {
		case errors.As(err, &httpErr):
			if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
				httpErr = herr
			}
			code = httpErr.Code
			message = httpErr.Message
		case errors.As(err, &vErrs):
			code = http.StatusBadRequest
			message = core.TranslateErrors(vErrs, translator)
		case errors.As(err, &vErr):
			code = http.StatusBadRequest
			if len(vErr.Fields) > 0 {
				message = vErr.FieldMap()
			} else {
				message = vErr.Error()
			}
		case isNotFound(err):
			code = http.StatusNotFound
			message = errHttpNotFound.Message
		case core.IsRetryable(err):
			code = http.StatusConflict
			message = echo.Map{"error": core.ErrConflict.Error(), "retryable": true}
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			logger.Error(msg, errors.Wrap(err, msg), map[string]interface{}{
				"method": ctx.Request().Method,
				"path":   ctx.Request().URL.Path,
			})

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
