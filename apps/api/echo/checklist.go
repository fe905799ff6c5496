package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core/checklist"
)

type checklistApi struct {
	svc checklist.Service
}

func registerChecklistAPI(g, admin *echo.Group, svc checklist.Service) {
	api := checklistApi{svc: svc}

	// public: active entries only
	g.GET("/document-templates", api.queryTemplates(true))
	g.GET("/document-templates/:id", api.retrieveTemplate(true))
	g.GET("/document-checklists", api.queryChecklists(true))
	g.GET("/document-checklists/:id", api.retrieveChecklist(true))

	tg := admin.Group("/document-templates")
	tg.GET("", api.queryTemplates(false))
	tg.POST("", api.createTemplate, adminMiddleware())
	tg.GET("/:id", api.retrieveTemplate(false))
	tg.PUT("/:id", api.updateTemplate, adminMiddleware())
	tg.DELETE("/:id", api.destroyTemplate, adminMiddleware())

	cg := admin.Group("/document-checklists")
	cg.GET("", api.queryChecklists(false))
	cg.POST("", api.createChecklist, adminMiddleware())
	cg.GET("/:id", api.retrieveChecklist(false))
	cg.PUT("/:id", api.updateChecklist, adminMiddleware())
	cg.DELETE("/:id", api.destroyChecklist, adminMiddleware())
}

func bindChecklistFilter(ctx echo.Context, activeOnly bool) (checklist.Filter, error) {
	var filter checklist.Filter
	if err := ctx.Bind(&filter); err != nil {
		return filter, err
	}
	if activeOnly {
		active := true
		filter.IsActive = &active
	}
	return filter, nil
}

// Templates

func (api *checklistApi) queryTemplates(activeOnly bool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		filter, err := bindChecklistFilter(ctx, activeOnly)
		if err != nil {
			return ctx.JSON(http.StatusOK, []checklist.DocumentTemplate{})
		}
		list, err := api.svc.QueryTemplates(ctx.Request().Context(), filter)
		if err != nil {
			return errors.Wrap(err, "querying document templates")
		}
		if list == nil {
			list = []checklist.DocumentTemplate{}
		}
		return ctx.JSON(http.StatusOK, list)
	}
}

func (api *checklistApi) retrieveTemplate(activeOnly bool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		t, err := api.svc.GetTemplate(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding document template")
		}
		if activeOnly && !t.IsActive {
			return checklist.ErrTemplateNotFound
		}
		return ctx.JSON(http.StatusOK, t)
	}
}

func (api *checklistApi) createTemplate(ctx echo.Context) error {
	var data checklist.NewDocumentTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDocumentTemplate")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	t, err := api.svc.CreateTemplate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating document template")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *checklistApi) updateTemplate(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	t, err := api.svc.GetTemplate(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding document template")
	}
	var data checklist.NewDocumentTemplate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDocumentTemplate")
	}
	if err = data.Validate(); err != nil {
		return err
	}
	t, err = api.svc.UpdateTemplate(rctx, t, data)
	if err != nil {
		return errors.Wrap(err, "updating document template")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *checklistApi) destroyTemplate(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	t, err := api.svc.GetTemplate(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding document template")
	}
	if err = api.svc.DeleteTemplates(rctx, t.ID); err != nil {
		return errors.Wrap(err, "deleting document template")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Checklists

func (api *checklistApi) queryChecklists(activeOnly bool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		filter, err := bindChecklistFilter(ctx, activeOnly)
		if err != nil {
			return ctx.JSON(http.StatusOK, []checklist.DocumentChecklist{})
		}
		list, err := api.svc.QueryChecklists(ctx.Request().Context(), filter)
		if err != nil {
			return errors.Wrap(err, "querying document checklists")
		}
		if list == nil {
			list = []checklist.DocumentChecklist{}
		}
		return ctx.JSON(http.StatusOK, list)
	}
}

func (api *checklistApi) retrieveChecklist(activeOnly bool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		c, err := api.svc.GetChecklist(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding document checklist")
		}
		if activeOnly && !c.IsActive {
			return checklist.ErrChecklistNotFound
		}
		return ctx.JSON(http.StatusOK, c)
	}
}

func (api *checklistApi) createChecklist(ctx echo.Context) error {
	var data checklist.NewDocumentChecklist
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDocumentChecklist")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	c, err := api.svc.CreateChecklist(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating document checklist")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *checklistApi) updateChecklist(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	c, err := api.svc.GetChecklist(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding document checklist")
	}
	var data checklist.NewDocumentChecklist
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDocumentChecklist")
	}
	if err = data.Validate(); err != nil {
		return err
	}
	c, err = api.svc.UpdateChecklist(rctx, c, data)
	if err != nil {
		return errors.Wrap(err, "updating document checklist")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *checklistApi) destroyChecklist(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	c, err := api.svc.GetChecklist(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding document checklist")
	}
	if err = api.svc.DeleteChecklists(rctx, c.ID); err != nil {
		return errors.Wrap(err, "deleting document checklist")
	}
	return ctx.NoContent(http.StatusNoContent)
}
