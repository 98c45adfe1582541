package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/dispatch"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/queue"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/util"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

func CreateRunHandler(c echo.Context) error {
	type createRunBody struct {
		DryRun bool `json:"dry_run"`
	}

	body := new(createRunBody)
	if err := c.Bind(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	if app.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Run queue unavailable"})
	}

	runID, err := util.NewRunID()
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	req := queue.RunRequest{
		RunID:       runID,
		Trigger:     "api",
		RequestedAt: time.Now().UTC(),
		DryRun:      body.DryRun,
	}
	if err := queue.Enqueue(app.Queue, req); err != nil {
		logger.Error("[Server][CreateRun] Failed to enqueue run", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to enqueue run"})
	}

	return c.JSON(http.StatusAccepted, req)
}

func GetRunsHandler(c echo.Context) error {
	type getRunsParams struct {
		Limit int `query:"limit" validate:"omitempty,min=1,max=200"`
	}

	params := new(getRunsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	runs := c.(*middleware.AppContext).App.Runs
	res, err := runs.List(c.Request().Context(), params.Limit)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	if res == nil {
		res = []dispatch.Run{}
	}

	return c.JSON(http.StatusOK, res)
}

func GetRunHandler(c echo.Context) error {
	runID := c.Param("id")
	if !util.IsRunID(runID) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	runs := c.(*middleware.AppContext).App.Runs
	res, err := runs.Get(c.Request().Context(), runID)
	if errors.Is(err, dispatch.ErrRunNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Run not found"})
	}
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, res)
}
