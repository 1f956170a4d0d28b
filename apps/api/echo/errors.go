package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/eliseea/mobility/core"
	"github.com/eliseea/mobility/core/mobility"
	"github.com/eliseea/mobility/core/testimonial"
	"github.com/eliseea/mobility/core/user"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// httpStatus maps an error to its status code and response message.
// It returns 0 for unexpected errors.
func httpStatus(err error, translator ut.Translator) (int, interface{}) {
	var (
		httpErr  *echo.HTTPError
		vErrs    validator.ValidationErrors
		valErr   *core.ValidationError
		stageErr *testimonial.StageError
		genErr   *testimonial.GenerationError
		persErr  *core.PersistenceError
	)

	switch {
	case errors.As(err, &httpErr):
		if httpErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, httpErr.Message
		}
		if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
			httpErr = herr
		}
		return httpErr.Code, httpErr.Message
	case errors.As(err, &vErrs):
		return http.StatusBadRequest, core.TranslateErrors(vErrs, translator)
	case errors.As(err, &valErr):
		if len(valErr.Fields) > 0 {
			fldErrs := make(map[string]string, len(valErr.Fields))
			for _, fErr := range valErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs
		}
		return http.StatusBadRequest, valErr.Error()
	case errors.As(err, &stageErr):
		return http.StatusConflict, stageErr.Error()
	case errors.Is(err, testimonial.ErrBusy),
		errors.Is(err, testimonial.ErrAlreadyExists),
		errors.Is(err, mobility.ErrStatusConflict):
		return http.StatusConflict, errors.Cause(err).Error()
	case errors.As(err, &genErr):
		return http.StatusBadGateway, testimonial.GenerationFailedMessage
	case errors.As(err, &persErr):
		return http.StatusServiceUnavailable, "the change could not be saved, please retry"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, notFoundMessage(err)
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, err.Error()
	}
	return 0, nil
}

// notFoundMessage drops the wrapping context, keeping e.g. "mobility: not found".
func notFoundMessage(err error) string {
	for _, target := range []error{mobility.ErrNotFound, mobility.ErrItemNotFound, user.ErrNotFound} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return core.ErrNotFound.Error()
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := httpStatus(err, translator)

		switch {
		case code == 0: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), contextUser(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		case code == http.StatusServiceUnavailable:
			logger.Error("persistence failure", err, contextUser(ctx))
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
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

// contextUser is the best-effort identity reported with server errors.
func contextUser(ctx echo.Context) user.User {
	if usr, ok := ctx.Get(userContextKey).(user.User); ok {
		return usr
	}
	var usr user.User
	if claims, err := getContextClaims(ctx); err == nil {
		usr.ID = claims.Subject
		usr.Name = claims.Name
		usr.Role = claims.Role
	}
	return usr
}
