package middleware

import (
	"context"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/dispatch"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/queue"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/store"

	"github.com/labstack/echo/v4"
)

type AppUser struct {
	Role        string
	Permissions []string
}

// RunReader reads the dispatch run history.
type RunReader interface {
	List(ctx context.Context, limit int) ([]dispatch.Run, error)
	Get(ctx context.Context, runID string) (*dispatch.Run, error)
}

type App struct {
	Graph  store.NetworkStorage
	Runs   RunReader
	Queue  queue.Publisher
	APIKey string
	// ReadKey grants read only access, e.g. for dashboards.
	ReadKey string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
