package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eliseea/mobility/core/testimonial"
	"github.com/eliseea/mobility/core/user"
)

type (
	testimonialApi struct {
		usrSvc *user.Service
		svc    *testimonial.Service
	}

	ContentRequest struct {
		Content string `json:"content"`
	}

	DiffResponse struct {
		Diff  string  `json:"diff"`
		Ratio float64 `json:"ratio"`
	}
)

func registerTestimonialAPI(g *echo.Group, usrSvc *user.Service, svc *testimonial.Service) {
	api := testimonialApi{usrSvc: usrSvc, svc: svc}

	g.GET("/mobilities/:id/testimonials", api.query)

	tg := g.Group("/testimonial", studentMiddleware(usrSvc))
	tg.GET("", api.snapshot)
	tg.POST("/generate", api.generate)
	tg.PUT("/draft", api.edit)
	tg.POST("/back", api.back)
	tg.GET("/diff", api.diff)
	tg.POST("/publish", api.publish)
	tg.POST("/restart", api.restart)
}

func (api *testimonialApi) pipeline(ctx echo.Context) (*testimonial.Pipeline, error) {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return nil, err
	}
	return api.svc.Pipeline(usr)
}

func (api *testimonialApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	ts, err := api.svc.Query(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying testimonials")
	}
	return ctx.JSON(http.StatusOK, ts)
}

func (api *testimonialApi) snapshot(ctx echo.Context) error {
	p, err := api.pipeline(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p.Snapshot())
}

func (api *testimonialApi) generate(ctx echo.Context) error {
	p, err := api.pipeline(ctx)
	if err != nil {
		return err
	}
	var data testimonial.Evaluation
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Evaluation")
	}
	if _, err = p.Submit(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "generating testimonial")
	}
	return ctx.JSON(http.StatusOK, p.Snapshot())
}

func (api *testimonialApi) edit(ctx echo.Context) error {
	p, err := api.pipeline(ctx)
	if err != nil {
		return err
	}
	var data ContentRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ContentRequest")
	}
	if err = p.Edit(data.Content); err != nil {
		return errors.Wrap(err, "editing draft")
	}
	return ctx.JSON(http.StatusOK, p.Snapshot())
}

func (api *testimonialApi) back(ctx echo.Context) error {
	p, err := api.pipeline(ctx)
	if err != nil {
		return err
	}
	if err = p.Back(); err != nil {
		return errors.Wrap(err, "going back to the form")
	}
	return ctx.JSON(http.StatusOK, p.Snapshot())
}

func (api *testimonialApi) diff(ctx echo.Context) error {
	p, err := api.pipeline(ctx)
	if err != nil {
		return err
	}
	diff, ratio, err := p.Diff()
	if err != nil {
		return errors.Wrap(err, "diffing draft")
	}
	return ctx.JSON(http.StatusOK, DiffResponse{Diff: diff, Ratio: ratio})
}

func (api *testimonialApi) publish(ctx echo.Context) error {
	p, err := api.pipeline(ctx)
	if err != nil {
		return err
	}
	var data ContentRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ContentRequest")
	}
	t, err := p.Publish(ctx.Request().Context(), data.Content)
	if err != nil {
		return errors.Wrap(err, "publishing testimonial")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *testimonialApi) restart(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	p, err := api.svc.Restart(usr)
	if err != nil {
		return errors.Wrap(err, "restarting testimonial")
	}
	return ctx.JSON(http.StatusOK, p.Snapshot())
}
