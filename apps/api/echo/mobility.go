package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eliseea/mobility/core/mobility"
	"github.com/eliseea/mobility/core/user"
)

type (
	mobilityApi struct {
		usrSvc *user.Service
		svc    *mobility.Service
	}

	checklistItemResponse struct {
		mobility.ChecklistItem
		MissingUpload bool `json:"missing_upload"`
	}

	// AdvanceRequest optionally carries the status the client last saw,
	// which makes retries of the same click idempotent.
	AdvanceRequest struct {
		From mobility.ItemStatus `json:"from"`
	}
)

func registerMobilityAPI(g *echo.Group, usrSvc *user.Service, svc *mobility.Service) {
	api := mobilityApi{usrSvc: usrSvc, svc: svc}

	g.GET("/mobility", api.retrieve)
	g.GET("/mobilities/:id/checklist", api.checklist)
	g.GET("/mobilities/:id/progress", api.progress)
	g.POST("/checklist/:id/advance", api.advance)
}

func newChecklistItemResponse(item mobility.ChecklistItem) checklistItemResponse {
	return checklistItemResponse{ChecklistItem: item, MissingUpload: item.MissingUpload()}
}

func (api *mobilityApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	mob, err := api.svc.ForUser(ctx.Request().Context(), usr, ctx.QueryParam("user_id"))
	if err != nil {
		return errors.Wrap(err, "getting mobility")
	}
	return ctx.JSON(http.StatusOK, mob)
}

func (api *mobilityApi) checklist(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	items, err := api.svc.Checklist(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting checklist")
	}
	res := make([]checklistItemResponse, 0, len(items))
	for _, item := range items {
		res = append(res, newChecklistItemResponse(item))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *mobilityApi) progress(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	progress, err := api.svc.Progress(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting progress")
	}
	return ctx.JSON(http.StatusOK, progress)
}

func (api *mobilityApi) advance(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	var data AdvanceRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdvanceRequest")
	}
	item, err := api.svc.Advance(ctx.Request().Context(), usr, ctx.Param("id"), data.From)
	if err != nil {
		return errors.Wrap(err, "advancing checklist item")
	}
	return ctx.JSON(http.StatusOK, newChecklistItemResponse(item))
}
