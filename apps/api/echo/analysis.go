package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core/analysis"
	"github.com/darpanintel/darpan/core/user"
)

type analysisApi struct {
	svc     analysis.Service
	visa    analysis.VisaAnalyzer
	userSvc user.Service
	intake  docIntake
}

func registerAnalysisAPI(g, admin *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := analysisApi{
		svc:     opts.AnalysisSvc,
		visa:    opts.VisaAnalyzer,
		userSvc: opts.UserSvc,
		intake:  docIntake{conf: opts.Upload, store: opts.Store, extractor: opts.Extractor},
	}

	g.POST("/analyze", api.analyzeVisa, api.intake.bodyLimit(), jwt)

	ag := g.Group("/analyses", jwt)
	ag.GET("", api.queryOwn)
	ag.GET("/:id", api.retrieve)
	ag.DELETE("/:id", api.destroy)

	admin.GET("/analyses", api.query)
	admin.DELETE("/analyses", api.destroyMultiple, adminMiddleware())
	admin.GET("/stats", api.stats)
}

func (api *analysisApi) analyzeVisa(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	na, text, err := api.intake.accept(ctx, usr)
	if err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	va := api.visa.AnalyzeVisa(rctx, text)
	na.DocumentType = analysis.TypeVisa
	na.Summary = va.Summary
	na.Results = va

	a, err := api.svc.Create(rctx, na)
	if err != nil {
		return errors.Wrap(err, "saving visa analysis")
	}
	api.svc.NotifyReady(usr, a, "/analyses/"+a.ID)
	return ctx.JSON(http.StatusCreated, a)
}

func (api *analysisApi) queryOwn(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	list, err := api.svc.QueryByUser(ctx.Request().Context(), usr.ID, ctx.QueryParam("document_type"), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying analyses")
	}
	if list == nil {
		list = []analysis.Analysis{}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *analysisApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	a, err := api.svc.GetFor(ctx.Request().Context(), ctx.Param("id"), usr)
	if err != nil {
		return errors.Wrap(err, "finding analysis")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *analysisApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rctx := ctx.Request().Context()
	a, err := api.svc.GetFor(rctx, ctx.Param("id"), usr)
	if err != nil {
		return errors.Wrap(err, "finding analysis")
	}
	// public analyses are readable by everyone but only deletable by their owner
	if a.UserID != usr.ID && !usr.IsAdmin() {
		return errHttpForbidden
	}

	if err = api.svc.Delete(rctx, a.ID); err != nil {
		return errors.Wrap(err, "deleting analysis")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *analysisApi) query(ctx echo.Context) error {
	var filter analysis.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []analysis.Analysis{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	list, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying analyses")
	}
	if list == nil {
		list = []analysis.Analysis{}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *analysisApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting analyses")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *analysisApi) stats(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	stats, err := api.svc.Stats(rctx)
	if err != nil {
		return errors.Wrap(err, "computing analysis stats")
	}
	users, err := api.userSvc.Query(rctx, nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	stats.TotalUsers = len(users)
	return ctx.JSON(http.StatusOK, stats)
}
