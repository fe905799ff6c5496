package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core/analysis"
	"github.com/darpanintel/darpan/core/offerletter"
	"github.com/darpanintel/darpan/core/user"
)

// AnalysisResponse is returned by the document upload endpoints.
type AnalysisResponse struct {
	Analysis analysis.Analysis `json:"analysis"`
	Info     interface{}       `json:"info"`
}

type offerLetterApi struct {
	svc         offerletter.Service
	analysisSvc analysis.Service
	userSvc     user.Service
	intake      docIntake
}

func registerOfferLetterAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := offerLetterApi{
		svc:         opts.OfferLetterSvc,
		analysisSvc: opts.AnalysisSvc,
		userSvc:     opts.UserSvc,
		intake:      docIntake{conf: opts.Upload, store: opts.Store, extractor: opts.Extractor},
	}

	og := g.Group("/offer-letter-analyses", jwt)
	og.POST("/analyze", api.analyze, api.intake.bodyLimit())
	og.GET("", api.query)
	og.GET("/:id", api.retrieve)
}

func (api *offerLetterApi) analyze(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	na, text, err := api.intake.accept(ctx, usr)
	if err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	an := api.svc.Analyze(rctx, text)
	a, info, err := api.svc.Save(rctx, na, an)
	if err != nil {
		return errors.Wrap(err, "saving offer letter analysis")
	}
	api.analysisSvc.NotifyReady(usr, a, "/offer-letter-analyses/"+a.ID)
	return ctx.JSON(http.StatusCreated, AnalysisResponse{Analysis: a, Info: info})
}

// query lists the user's own analyses. Staff may list anyone's with ?user_id, or everyone's without.
func (api *offerLetterApi) query(ctx echo.Context) error {
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
		return errors.Wrap(err, "querying offer letter analyses")
	}
	if list == nil {
		list = []offerletter.Info{}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *offerLetterApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	info, err := api.svc.GetByAnalysisID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding offer letter analysis")
	}
	if info.UserID != usr.ID && !usr.IsStaff() {
		return errors.Wrap(offerletter.ErrNotFound, "checking owner")
	}
	return ctx.JSON(http.StatusOK, info)
}
