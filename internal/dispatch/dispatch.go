// Package dispatch runs the daily batch: it extracts fresh records,
// reconciles them with the workbook, scores suspects, folds relationship
// sheets into the association graph and writes everything back.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/extract"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/metrics"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/address"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/entity"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/network"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/priority"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/soc"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/store"
)

// ColRelationships holds the URL of a suspect's relationship sheet.
const ColRelationships = "Relationships"

type Extractor interface {
	Load(ctx context.Context) (*extract.Records, error)
}

type Workbook interface {
	ReadAll(ctx context.Context) (map[string]*sheet.Table, error)
	WriteAll(ctx context.Context, tables []sheet.Named) error
	ReadFirstSheet(ctx context.Context, spreadsheetID string) (*sheet.Table, error)
	CreateRelationshipSheet(ctx context.Context, title string, header []string) (string, error)
}

type Archive interface {
	SaveBackup(ctx context.Context, tables map[string]*sheet.Table, day time.Time) (string, error)
	SaveSnapshots(ctx context.Context, runID string, tables []sheet.Named) ([]string, error)
}

type Locker interface {
	WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

type Recorder interface {
	Start(ctx context.Context, run Run) error
	Finish(ctx context.Context, run Run) error
}

// Deps are the collaborators of a Dispatcher. Archive, SOC, Locker and
// History are optional.
type Deps struct {
	Extractor Extractor
	Workbook  Workbook
	Graph     store.NetworkStorage
	Archive   Archive
	SOC       soc.Scorer
	Locker    Locker
	History   Recorder
}

type Config struct {
	// RelationshipSheets is how many of the top ranked suspects get a
	// relationship sheet.
	RelationshipSheets int
	// DryRun skips every write to the workbook.
	DryRun bool
	Lease  leaselock.Options
}

// Result summarizes one run.
type Result struct {
	RunID         string
	Sheets        []sheet.Named
	Active        map[entity.GroupName]int
	Closed        map[entity.GroupName]int
	SheetsCreated int
	EdgesIngested int
	LinksUpdated  int
	BackupKey     string
	Duration      time.Duration
}

type Dispatcher struct {
	deps Deps
	cfg  Config
	now  func() time.Time
}

func New(deps Deps, cfg Config) (*Dispatcher, error) {
	if deps.Extractor == nil || deps.Workbook == nil || deps.Graph == nil {
		return nil, errors.New("dispatcher needs an extractor, a workbook and a graph store")
	}
	if cfg.RelationshipSheets < 0 {
		cfg.RelationshipSheets = 0
	}
	return &Dispatcher{deps: deps, cfg: cfg, now: time.Now}, nil
}

// DryRun returns a copy of d that never writes to the workbook.
func (d *Dispatcher) DryRun() *Dispatcher {
	c := *d
	c.cfg.DryRun = true
	return &c
}

// Run performs one dispatch run under the dispatch lease.
func (d *Dispatcher) Run(ctx context.Context, runID, trigger string) (*Result, error) {
	started := d.now()
	log := logger.With("run_id", runID, "trigger", trigger)
	run := Run{RunID: runID, Trigger: trigger, StartedAt: started.UTC(), Status: StatusRunning}
	if d.deps.History != nil {
		if err := d.deps.History.Start(ctx, run); err != nil {
			return nil, err
		}
	}

	var res *Result
	body := func(ctx context.Context) error {
		var err error
		res, err = d.run(ctx, runID)
		return err
	}
	var err error
	if d.deps.Locker != nil {
		opts := d.cfg.Lease
		if opts.TokenPrefix == "" {
			opts.TokenPrefix = trigger + "-"
		}
		err = d.deps.Locker.WithLease(ctx, leaselock.DispatchRunKey, opts, body)
	} else {
		err = body(ctx)
	}
	metrics.ObserveRun(started, err)

	finished := d.now().UTC()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		log.Error("[Dispatch][Run] Run failed", "err", err)
	} else {
		run.Status = StatusSucceeded
		res.Duration = d.now().Sub(started)
		run.ActiveSuspects = res.Active[entity.Suspects]
		run.ClosedSuspects = res.Closed[entity.Suspects]
		run.LinksUpdated = res.LinksUpdated
		log.Info("[Dispatch][Run] Run complete", "duration", res.Duration.Round(time.Second))
	}
	if d.deps.History != nil {
		// the run outcome must be recorded even when ctx was cancelled
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if herr := d.deps.History.Finish(hctx, run); herr != nil {
			log.Error("[Dispatch][Run] Failed to record run", "err", herr)
		}
		cancel()
	}
	return res, err
}

func (d *Dispatcher) run(ctx context.Context, runID string) (*Result, error) {
	today := d.now()
	res := &Result{RunID: runID}

	records, err := d.deps.Extractor.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	tables, err := d.deps.Workbook.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	if d.deps.Archive != nil {
		res.BackupKey, err = d.deps.Archive.SaveBackup(ctx, tables, today)
		if err != nil {
			return nil, fmt.Errorf("backup workbook: %w", err)
		}
	}

	arrests := entity.ParseArrests(tables[sheet.Arrests])

	var strength map[string]float64
	if d.deps.SOC != nil {
		strength = soc.ScoreAll(d.deps.SOC, soc.PrepareFeatures(records.Cifs))
	}

	ec, err := Reconcile(records, tables, arrests, today)
	if err != nil {
		return nil, err
	}
	suspects, _ := ec.Group(entity.Suspects)
	police, _ := ec.Group(entity.Police)
	victims, _ := ec.Group(entity.Victims)

	params, err := priority.ParseParameters(rawGrid(tables[sheet.Parameters]))
	if err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}
	scorer, err := priority.NewScorer(params, today)
	if err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}

	willing := priority.VictimsWillingToTestify(victims.Active)
	police.Active = priority.AddVictimNamesToPolice(police.Active, willing)
	scored, err := scorer.Score(priority.Inputs{
		Suspects:       suspects.Active,
		Police:         police.Active,
		Willing:        willing,
		Arrests:        arrests,
		InterviewDates: priority.ParseInterviewDates(records.Cifs),
		StrengthOfCase: strength,
	})
	if err != nil {
		return nil, fmt.Errorf("score suspects: %w", err)
	}
	suspects.Active = priority.Table(suspects.Active.Header, scored)
	victims.Active = priority.PropagatePriority(suspects.Active, victims.Active, entity.ColCaseID, entity.ColVictimID)
	police.Active = priority.PropagatePriority(suspects.Active, police.Active, entity.ColSuspectID, entity.ColSuspectID)

	if !d.cfg.DryRun {
		res.SheetsCreated, err = d.createRelationshipSheets(ctx, suspects.Active)
		if err != nil {
			return nil, err
		}
	}

	res.EdgesIngested = d.ingestRelationshipSheets(ctx, suspects)
	metrics.IngestedEdges.Add(float64(res.EdgesIngested))

	res.LinksUpdated, err = network.Recalculate(ctx, d.deps.Graph)
	if err != nil {
		return nil, fmt.Errorf("recalculate links: %w", err)
	}
	metrics.LinksUpdated.Add(float64(res.LinksUpdated))

	res.Sheets = ec.Snapshot()
	res.Active = make(map[entity.GroupName]int)
	res.Closed = make(map[entity.GroupName]int)
	for _, g := range ec.Groups() {
		res.Active[g.Name] = g.Active.Len()
		res.Closed[g.Name] = g.Closed.Len()
		metrics.SetGroupSizes(string(g.Name), g.Active.Len(), g.Closed.Len())
	}

	if d.deps.Archive != nil {
		if _, err := d.deps.Archive.SaveSnapshots(ctx, runID, res.Sheets); err != nil {
			return nil, fmt.Errorf("save snapshots: %w", err)
		}
	}
	if d.cfg.DryRun {
		logger.Info("[Dispatch][Run] Dry run, workbook left untouched", "run_id", runID)
		return res, nil
	}
	if err := d.deps.Workbook.WriteAll(ctx, res.Sheets); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return res, nil
}

// Reconcile builds the pending records from the extraction and folds them
// into the active and closed sheets of every entity group.
func Reconcile(records *extract.Records, tables map[string]*sheet.Table, arrests *entity.Arrests, today time.Time) (*entity.Context, error) {
	ec := entity.NewContext()
	victims := entity.NewGroup(entity.Victims, entity.ColVictimID,
		entity.BuildNewVictims(records.Victims), tables[sheet.Victims], tables[sheet.ClosedVictims])
	suspects := entity.NewGroup(entity.Suspects, entity.ColSuspectID,
		entity.BuildNewSuspects(records.Suspects, records.Cifs), tables[sheet.Suspects], tables[sheet.ClosedSuspects])
	ec.Add(victims)
	ec.Add(suspects)

	ec.MergeAddresses(address.NewBook(records.Addresses))
	ec.SetCaseID()

	// police records start as a copy of the pending suspects once their ids
	// are final
	ec.Add(entity.NewGroup(entity.Police, entity.ColSuspectID,
		entity.BuildNewPolice(suspects.New), tables[sheet.Police], tables[sheet.ClosedPolice]))

	ec.CombineSheets()
	ec.MoveClosed(arrests, today)
	if err := ec.MoveOtherClosed(today); err != nil {
		return nil, err
	}

	for _, g := range ec.Groups() {
		if !g.Disjoint() {
			return nil, fmt.Errorf("entity group %s has records both active and closed", g.Name)
		}
	}
	return ec, nil
}

func rawGrid(t *sheet.Table) [][]string {
	if t == nil {
		return nil
	}
	if t.Raw != nil {
		return t.Raw
	}
	return t.Values()
}
