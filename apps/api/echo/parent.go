package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sekolahkita/portalguru/core/student"
)

type parentApi struct {
	svc student.Service
}

// registerParentAPI exposes the slice of the portal parents see: the students
// linked to their account's email address, read-only.
func registerParentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc student.Service) {
	api := parentApi{svc: svc}

	pg := g.Group("/parent", jwt, parentMiddleware())
	pg.GET("/children", api.children)
}

func (api *parentApi) children(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	children, err := api.svc.QueryByParentEmail(ctx.Request().Context(), claims.Email)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	if children == nil {
		children = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, children)
}
