package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core/analysis"
	"github.com/darpanintel/darpan/core/coe"
	"github.com/darpanintel/darpan/core/user"
)

type coeApi struct {
	svc         coe.Service
	analysisSvc analysis.Service
	userSvc     user.Service
	intake      docIntake
}

func registerCoeAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := coeApi{
		svc:         opts.CoeSvc,
		analysisSvc: opts.AnalysisSvc,
		userSvc:     opts.UserSvc,
		intake:      docIntake{conf: opts.Upload, store: opts.Store, extractor: opts.Extractor},
	}

	cg := g.Group("/coe-analysis", jwt)
	cg.POST("", api.analyze, api.intake.bodyLimit())
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
}

func (api *coeApi) analyze(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	na, text, err := api.intake.accept(ctx, usr)
	if err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	ca := api.svc.Analyze(rctx, text)
	a, info, err := api.svc.Save(rctx, na, ca)
	if err != nil {
		return errors.Wrap(err, "saving coe analysis")
	}
	api.analysisSvc.NotifyReady(usr, a, "/coe-analysis/"+a.ID)
	return ctx.JSON(http.StatusCreated, AnalysisResponse{Analysis: a, Info: info})
}

func (api *coeApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	userID := usr.ID
	if usr.IsStaff() {
		userID = ctx.QueryParam("user_id")
	}

	list, err := api.svc.QueryByUser(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "querying coe analyses")
	}
	if list == nil {
		list = []coe.Info{}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *coeApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	info, err := api.svc.GetByAnalysisID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding coe analysis")
	}
	if info.UserID != usr.ID && !usr.IsStaff() {
		return errors.Wrap(coe.ErrNotFound, "checking owner")
	}
	return ctx.JSON(http.StatusOK, info)
}
