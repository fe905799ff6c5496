package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core/destination"
)

type destinationApi struct {
	svc destination.Service
}

func registerDestinationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc destination.Service) {
	api := destinationApi{svc: svc}
	g.POST("/destination-suggestions", api.suggest, jwt)
}

func (api *destinationApi) suggest(ctx echo.Context) error {
	var data destination.Profile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Profile")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.Suggest(ctx.Request().Context(), data))
}
