package routes

import (
	"errors"
	"net/http"
	"sort"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/store"

	"github.com/labstack/echo/v4"
)

func GetSuspectsHandler(c echo.Context) error {
	type getSuspectsParams struct {
		MinLinks int `query:"min_links" validate:"min=0"`
	}

	params := new(getSuspectsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	graph := c.(*middleware.AppContext).App.Graph
	ctx := c.Request().Context()

	suspects, err := graph.ListSuspects(ctx)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	res := suspects[:0]
	for _, s := range suspects {
		if s.LinkStats.FirstDegreeLinks >= params.MinLinks {
			res = append(res, s)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].LinkStats.FirstDegreeCaseLinks > res[j].LinkStats.FirstDegreeCaseLinks
	})

	return c.JSON(http.StatusOK, res)
}

func GetSuspectHandler(c echo.Context) error {
	type getSuspectParams struct {
		ID int64 `param:"id" validate:"required,min=1"`
	}

	params := new(getSuspectParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	graph := c.(*middleware.AppContext).App.Graph
	ctx := c.Request().Context()

	suspect, err := graph.GetSuspect(ctx, params.ID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Suspect not found"})
	}
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, suspect)
}
