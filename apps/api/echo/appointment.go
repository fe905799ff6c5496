package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core/appointment"
	"github.com/darpanintel/darpan/core/user"
)

type appointmentApi struct {
	svc     appointment.Service
	userSvc user.Service
}

func registerAppointmentAPI(g, admin *echo.Group, jwt echo.MiddlewareFunc, svc appointment.Service, userSvc user.Service) {
	api := appointmentApi{svc: svc, userSvc: userSvc}

	ag := g.Group("/appointments", jwt)
	ag.POST("", api.create)
	ag.GET("", api.queryOwn)

	admin.GET("/appointments", api.query)
	admin.GET("/appointments/:id", api.retrieve)
	admin.PUT("/appointments/:id/status", api.updateStatus)
}

func (api *appointmentApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data appointment.NewAppointment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAppointment")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	appt, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating appointment")
	}
	return ctx.JSON(http.StatusCreated, appt)
}

func (api *appointmentApi) queryOwn(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	filter := appointment.QueryFilter{UserID: usr.ID, Status: ctx.QueryParam("status")}
	return api.list(ctx, filter)
}

func (api *appointmentApi) query(ctx echo.Context) error {
	var filter appointment.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []appointment.Appointment{})
	}
	return api.list(ctx, filter)
}

func (api *appointmentApi) list(ctx echo.Context, filter appointment.QueryFilter) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	list, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying appointments")
	}
	if list == nil {
		list = []appointment.Appointment{}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *appointmentApi) retrieve(ctx echo.Context) error {
	appt, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding appointment")
	}
	return ctx.JSON(http.StatusOK, appt)
}

func (api *appointmentApi) updateStatus(ctx echo.Context) error {
	var data appointment.StatusUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	appt, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding appointment")
	}
	owner, err := api.userSvc.GetByID(rctx, appt.UserID)
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return errors.Wrap(err, "finding appointment owner")
	}

	appt, err = api.svc.UpdateStatus(rctx, appt, owner, data)
	if err != nil {
		return errors.Wrap(err, "updating appointment status")
	}
	return ctx.JSON(http.StatusOK, appt)
}
