package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/dispatch"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/extract"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/gsheets"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/storage"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/util"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/entity"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/priority"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/soc"
	pgxstore "github.com/OFFIS-RIT/case-dispatcher/backend/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

// app holds the connections of one process.
type app struct {
	pool       *pgxpool.Pool
	source     *pgxpool.Pool
	graph      *pgxstore.NetworkDBStorage
	history    *dispatch.History
	locks      *leaselock.Client
	dispatcher *dispatch.Dispatcher
}

// logHolder reports who holds the dispatch lease after a run found it busy.
func (a *app) logHolder(ctx context.Context) {
	h, err := a.locks.Holder(ctx, leaselock.DispatchRunKey)
	if err != nil || h == nil {
		return
	}
	logger.Warn("[Dispatcher][Lease] Dispatch lease is held", "holder", h.Token, "expires_at", h.ExpiresAt)
}

func (a *app) Close() {
	if a.source != nil && a.source != a.pool {
		a.source.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// openDatabase connects the graph database and builds the stores that only
// need it. The server uses this without any of the run dependencies.
func openDatabase(ctx context.Context) (*app, error) {
	if global.databaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	pool, err := pgxpool.New(ctx, global.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &app{
		pool:    pool,
		graph:   pgxstore.NewNetworkDBStorageWithConnection(pool),
		history: dispatch.NewHistory(pool),
		locks:   leaselock.New(pool),
	}, nil
}

// openApp wires everything a dispatch run needs.
func openApp(ctx context.Context, trigger string) (*app, error) {
	a, err := openDatabase(ctx)
	if err != nil {
		return nil, err
	}

	a.source = a.pool
	if global.sourceDatabaseURL != "" && global.sourceDatabaseURL != global.databaseURL {
		a.source, err = pgxpool.New(ctx, global.sourceDatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect source database: %w", err)
		}
	}

	workbook, err := gsheets.NewClient(ctx, gsheets.Config{
		CredentialsFile: global.credentialsFile,
		SpreadsheetID:   global.spreadsheetID,
		ShareDomains:    global.shareDomains,
		NumericColumns: []string{
			entity.ColPriority,
			priority.ColSolvability,
			priority.ColStrengthOfCase,
			priority.ColEminence,
		},
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	deps := dispatch.Deps{
		Extractor: extract.NewSource(a.source),
		Workbook:  workbook,
		Graph:     a.graph,
		Locker:    a.locks,
		History:   a.history,
	}

	var objects *storage.Store
	if util.GetEnv("AWS_BUCKET") != "" {
		objects, err = storage.NewStoreFromEnv(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Archive = objects
	} else {
		logger.Warn("[Dispatcher][Init] AWS_BUCKET not set, backups and snapshots are disabled")
	}

	model, err := loadModel(ctx, global.socModel, objects)
	if err != nil {
		a.Close()
		return nil, err
	}
	if model != nil {
		deps.SOC = model
	}

	a.dispatcher, err = dispatch.New(deps, dispatch.Config{
		RelationshipSheets: global.relationshipSheets,
		Lease: leaselock.Options{
			TTL:         util.GetEnvDuration("DISPATCH_LEASE_TTL", 10*time.Minute),
			TokenPrefix: trigger + "-",
		},
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// loadModel reads the strength of case model from disk or, with an s3://
// prefix, from the object store. An empty ref disables scoring.
func loadModel(ctx context.Context, ref string, objects *storage.Store) (*soc.LogisticModel, error) {
	if ref == "" {
		logger.Warn("[Dispatcher][Init] SOC_MODEL not set, strength of case scores default to 0")
		return nil, nil
	}
	key, remote := strings.CutPrefix(ref, "s3://")
	if !remote {
		return soc.LoadModelFile(ref)
	}
	if objects == nil {
		return nil, fmt.Errorf("soc model %q needs AWS_BUCKET", ref)
	}
	data, err := objects.GetFile(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download soc model: %w", err)
	}
	return soc.DecodeModel(bytes.NewReader(data))
}
