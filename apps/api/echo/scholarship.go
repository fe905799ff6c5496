package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core/scholarship"
)

var errScholarshipNotFoundInCtx = errors.New("scholarship object not found in echo.Context")

type scholarshipApi struct {
	svc scholarship.Service
}

func registerScholarshipAPI(g, admin *echo.Group, svc scholarship.Service) {
	api := scholarshipApi{svc: svc}

	// public catalog: active entries only
	g.GET("/scholarships/search", api.search)
	g.GET("/scholarships/:id", api.retrievePublic)

	sg := admin.Group("/scholarships")
	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())
	sg.DELETE("", api.destroyMultiple, adminMiddleware())

	dg := sg.Group("/:id", scholarshipObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

func (api *scholarshipApi) search(ctx echo.Context) error {
	var filter scholarship.SearchFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []scholarship.Scholarship{})
	}
	active := true
	filter.IsActive = &active
	return api.list(ctx, filter)
}

func (api *scholarshipApi) query(ctx echo.Context) error {
	var filter scholarship.SearchFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []scholarship.Scholarship{})
	}
	return api.list(ctx, filter)
}

func (api *scholarshipApi) list(ctx echo.Context, filter scholarship.SearchFilter) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	list, err := api.svc.Search(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "searching scholarships")
	}
	if list == nil {
		list = []scholarship.Scholarship{}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *scholarshipApi) retrievePublic(ctx echo.Context) error {
	s, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding scholarship")
	}
	if !s.IsActive {
		return errors.Wrap(scholarship.ErrNotFound, "checking scholarship is active")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scholarshipApi) create(ctx echo.Context) error {
	var data scholarship.NewScholarship
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewScholarship")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating scholarship")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *scholarshipApi) retrieve(ctx echo.Context) error {
	s, ok := ctx.Get("object").(scholarship.Scholarship)
	if !ok {
		return errors.Wrap(errScholarshipNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scholarshipApi) update(ctx echo.Context) error {
	s, ok := ctx.Get("object").(scholarship.Scholarship)
	if !ok {
		return errors.Wrap(errScholarshipNotFoundInCtx, "retrieving object from context")
	}
	var data scholarship.NewScholarship
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewScholarship")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	s, err := api.svc.Update(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating scholarship")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scholarshipApi) destroy(ctx echo.Context) error {
	s, ok := ctx.Get("object").(scholarship.Scholarship)
	if !ok {
		return errors.Wrap(errScholarshipNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), s.ID); err != nil {
		return errors.Wrap(err, "deleting scholarship")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scholarshipApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting scholarships")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func scholarshipObjectMiddleware(svc scholarship.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			s, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding scholarship by ID")
			}
			ctx.Set("object", s)
			return next(ctx)
		}
	}
}
