package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eliseea/mobility/core/journal"
	"github.com/eliseea/mobility/core/user"
)

type journalApi struct {
	usrSvc *user.Service
	svc    *journal.Service
}

func registerJournalAPI(g *echo.Group, usrSvc *user.Service, svc *journal.Service) {
	api := journalApi{usrSvc: usrSvc, svc: svc}

	jg := g.Group("/mobilities/:id/journal")
	jg.GET("", api.list)
	jg.POST("", api.create, studentMiddleware(usrSvc))
}

func (api *journalApi) list(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	entries, err := api.svc.List(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing journal entries")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *journalApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	var data journal.NewEntry
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	entry, err := api.svc.Add(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding journal entry")
	}
	return ctx.JSON(http.StatusCreated, entry)
}
