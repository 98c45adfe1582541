package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/extract"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/entity"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/network"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/priority"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/store/memory"
)

var today = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

type fakeExtractor struct {
	records *extract.Records
	err     error
}

func (f *fakeExtractor) Load(ctx context.Context) (*extract.Records, error) {
	return f.records, f.err
}

type fakeWorkbook struct {
	tables    map[string]*sheet.Table
	related   map[string]*sheet.Table
	written   [][]sheet.Named
	created   []string
	createErr error
}

func (f *fakeWorkbook) ReadAll(ctx context.Context) (map[string]*sheet.Table, error) {
	return f.tables, nil
}

func (f *fakeWorkbook) WriteAll(ctx context.Context, tables []sheet.Named) error {
	f.written = append(f.written, tables)
	return nil
}

func (f *fakeWorkbook) ReadFirstSheet(ctx context.Context, spreadsheetID string) (*sheet.Table, error) {
	t, ok := f.related[spreadsheetID]
	if !ok {
		return nil, errors.New("not found")
	}
	return t, nil
}

func (f *fakeWorkbook) CreateRelationshipSheet(ctx context.Context, title string, header []string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, title)
	return "https://docs.google.com/spreadsheets/d/rel1/edit", nil
}

type fakeArchive struct {
	backups   int
	snapshots int
}

func (f *fakeArchive) SaveBackup(ctx context.Context, tables map[string]*sheet.Table, day time.Time) (string, error) {
	f.backups++
	return "backups/" + day.Format("01-02-2006") + "_Backup_Sheets.zip", nil
}

func (f *fakeArchive) SaveSnapshots(ctx context.Context, runID string, tables []sheet.Named) ([]string, error) {
	f.snapshots += len(tables)
	return nil, nil
}

type fakeLocker struct {
	key  string
	opts leaselock.Options
}

func (f *fakeLocker) WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error {
	f.key = key
	f.opts = opts
	return fn(ctx)
}

type fakeHistory struct {
	started  []Run
	finished []Run
}

func (f *fakeHistory) Start(ctx context.Context, run Run) error {
	f.started = append(f.started, run)
	return nil
}

func (f *fakeHistory) Finish(ctx context.Context, run Run) error {
	f.finished = append(f.finished, run)
	return nil
}

func records() *extract.Records {
	return &extract.Records{
		Cifs: sheet.FromValues([][]string{
			{entity.RawFormNumber, entity.RawPersonID, entity.RawPersonBox, entity.RawInterviewDate},
			{"BHD100A", "p1", "1", "2024-02-24"},
		}),
		Victims: sheet.FromValues([][]string{
			{entity.RawFormNumber, entity.RawFullName, entity.RawPhone, "address2_id"},
			{"BHD100A", "Sita", "9800000001", "5"},
		}),
		Suspects: sheet.FromValues([][]string{
			{entity.RawPersonID, entity.RawFullName, entity.RawPhone, "address2_id"},
			{"p1", "Ravi", "9800000002", "5"},
		}),
		Addresses: sheet.FromValues([][]string{
			{"address1", "address2_id", "address2"},
			{"Kathmandu", "5", "Ward 3"},
		}),
	}
}

func parameterGrid() [][]string {
	return [][]string{
		{"Solvability Factor", "Weight", "", "", "Priority Factor", "Weight", "Victims_Willing_to_Testify", "V_Multiplier"},
		{priority.FactorVictimWilling, "1", "", "", priority.FactorSolvability, "1", "0", "0"},
		{priority.FactorBioLocation, "1", "", "", priority.FactorStrength, "1", "1", "0.5"},
		{priority.FactorOthersArrested, "1", "", "", priority.FactorEminence, "1", "2", "0.8"},
		{priority.FactorPoliceWilling, "1", "", "", "", "", "3", "1"},
		{priority.FactorRecency, "1", "", "", "", "", "", ""},
	}
}

func workbookTables() map[string]*sheet.Table {
	return map[string]*sheet.Table{
		sheet.Victims: sheet.FromValues([][]string{{
			entity.ColCaseID, entity.ColName, entity.ColPhone, entity.ColAddress, entity.ColVictimID, entity.ColCaseStatus,
		}}),
		sheet.Suspects: sheet.FromValues([][]string{{
			entity.ColCaseID, entity.ColName, entity.ColPhone, entity.ColAddress, entity.ColSuspectID,
			priority.ColBioLocation, priority.ColEminence, ColRelationships,
		}}),
		sheet.Police: sheet.FromValues([][]string{{
			entity.ColCaseID, entity.ColSuspectName, entity.ColPhone, entity.ColAddress, entity.ColSuspectID, entity.ColCaseStatus,
		}}),
		sheet.Parameters: sheet.FromValues(parameterGrid()),
	}
}

func relationshipSheet() *sheet.Table {
	return sheet.FromValues([][]string{
		network.RelationshipHeader,
		{"", "9800000002", "9800000003", "Brother", "Phone Contact", "1", "", ""},
	})
}

func newTestDispatcher(t *testing.T, wb *fakeWorkbook, deps Deps, cfg Config) *Dispatcher {
	t.Helper()
	deps.Extractor = &fakeExtractor{records: records()}
	deps.Workbook = wb
	if deps.Graph == nil {
		deps.Graph = memory.New()
	}
	d, err := New(deps, cfg)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	d.now = func() time.Time { return today }
	return d
}

func TestRunWritesReconciledWorkbook(t *testing.T) {
	wb := &fakeWorkbook{
		tables:  workbookTables(),
		related: map[string]*sheet.Table{"rel1": relationshipSheet()},
	}
	archive := &fakeArchive{}
	locker := &fakeLocker{}
	history := &fakeHistory{}
	graph := memory.New()
	d := newTestDispatcher(t, wb, Deps{Archive: archive, Locker: locker, History: history, Graph: graph},
		Config{RelationshipSheets: 3})

	res, err := d.Run(context.Background(), "run1", "test")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if locker.key != leaselock.DispatchRunKey || locker.opts.TokenPrefix != "test-" {
		t.Fatalf("unexpected lease %q %+v", locker.key, locker.opts)
	}
	if len(wb.written) != 1 {
		t.Fatalf("expected one batch write, got %d", len(wb.written))
	}
	names := []string{}
	for _, nt := range wb.written[0] {
		names = append(names, nt.Name)
	}
	want := []string{sheet.Victims, sheet.ClosedVictims, sheet.Suspects, sheet.ClosedSuspects, sheet.Police, sheet.ClosedPolice}
	if len(names) != len(want) {
		t.Fatalf("expected sheets %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected sheets %v, got %v", want, names)
		}
	}

	sus := wb.written[0][2].Table
	if sus.Len() != 1 {
		t.Fatalf("expected 1 active suspect, got %d", sus.Len())
	}
	rec := sus.Rows[0]
	if rec.Get(entity.ColSuspectID) != "BHD100.PB1" || rec.Get(entity.ColCaseID) != "BHD100" {
		t.Fatalf("unexpected suspect %v", rec)
	}
	if rec.Get(entity.ColAddress) != "Ward 3, Kathmandu" {
		t.Fatalf("expected resolved address, got %q", rec.Get(entity.ColAddress))
	}
	if rec.Get(entity.ColPriority) == "" {
		t.Fatal("expected priority to be set")
	}
	if rec.Get(ColRelationships) == "" || len(wb.created) != 1 || wb.created[0] != "BHD100.PB1_relationships" {
		t.Fatalf("expected relationship sheet to be created, got %q %v", rec.Get(ColRelationships), wb.created)
	}

	pol := wb.written[0][4].Table
	if pol.Len() != 1 || pol.Rows[0].Get(entity.ColSuspectName) != "Ravi" {
		t.Fatalf("unexpected police sheet %v", pol.Rows)
	}

	if res.SheetsCreated != 1 || res.EdgesIngested != 1 || res.LinksUpdated != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	g, _ := graph.LoadGraph(context.Background())
	if len(g.CaseSuspects) != 1 || g.CaseSuspects[0].SuspectCaseID != "BHD100.PB1" {
		t.Fatalf("expected suspect case id default from the suspect record, got %+v", g.CaseSuspects)
	}
	if g.Suspects[0].LinkStats.FirstDegreeLinks != 1 {
		t.Fatalf("expected first degree link, got %+v", g.Suspects[0].LinkStats)
	}

	if archive.backups != 1 || archive.snapshots != 6 {
		t.Fatalf("expected backup and 6 snapshots, got %+v", archive)
	}
	if len(history.finished) != 1 || history.finished[0].Status != StatusSucceeded || history.finished[0].ActiveSuspects != 1 {
		t.Fatalf("unexpected history %+v", history.finished)
	}
}

func TestRunTwiceIsStable(t *testing.T) {
	wb := &fakeWorkbook{
		tables:  workbookTables(),
		related: map[string]*sheet.Table{"rel1": relationshipSheet()},
	}
	graph := memory.New()
	d := newTestDispatcher(t, wb, Deps{Graph: graph}, Config{RelationshipSheets: 3})
	if _, err := d.Run(context.Background(), "run1", "test"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	// the second run starts from what the first one wrote
	next := workbookTables()
	for _, nt := range wb.written[0] {
		next[nt.Name] = sheet.FromValues(nt.Table.Values())
	}
	wb.tables = next
	res, err := d.Run(context.Background(), "run2", "test")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if res.SheetsCreated != 0 || res.EdgesIngested != 0 || res.LinksUpdated != 0 {
		t.Fatalf("expected nothing new on the second run, got %+v", res)
	}
	if wb.written[1][2].Table.Len() != 1 {
		t.Fatalf("expected the suspect to stay active, got %d", wb.written[1][2].Table.Len())
	}
}

func TestDryRunLeavesWorkbookUntouched(t *testing.T) {
	wb := &fakeWorkbook{tables: workbookTables()}
	d := newTestDispatcher(t, wb, Deps{}, Config{RelationshipSheets: 3, DryRun: true})

	res, err := d.Run(context.Background(), "run1", "test")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(wb.written) != 0 || len(wb.created) != 0 {
		t.Fatalf("expected no writes, got %d writes and %v created", len(wb.written), wb.created)
	}
	if len(res.Sheets) != 6 {
		t.Fatalf("expected 6 sheets in the result, got %d", len(res.Sheets))
	}
}

func TestRunFailsWithoutParameters(t *testing.T) {
	tables := workbookTables()
	delete(tables, sheet.Parameters)
	wb := &fakeWorkbook{tables: tables}
	history := &fakeHistory{}
	d := newTestDispatcher(t, wb, Deps{History: history}, Config{})

	_, err := d.Run(context.Background(), "run1", "test")
	if !errors.Is(err, priority.ErrMissingWeight) {
		t.Fatalf("expected ErrMissingWeight, got %v", err)
	}
	if len(wb.written) != 0 {
		t.Fatal("expected nothing to be written")
	}
	if len(history.finished) != 1 || history.finished[0].Status != StatusFailed || history.finished[0].Error == "" {
		t.Fatalf("expected failed run to be recorded, got %+v", history.finished)
	}
}

func TestRunFailsWhenSheetCreationFails(t *testing.T) {
	wb := &fakeWorkbook{tables: workbookTables(), createErr: errors.New("quota")}
	d := newTestDispatcher(t, wb, Deps{}, Config{RelationshipSheets: 1})

	if _, err := d.Run(context.Background(), "run1", "test"); err == nil {
		t.Fatal("expected error")
	}
	if len(wb.written) != 0 {
		t.Fatal("expected nothing to be written")
	}
}

func TestReconcileClosesArrestedCase(t *testing.T) {
	tables := workbookTables()
	arrests := entity.ParseArrests(sheet.FromValues([][]string{
		{entity.ColIRF, entity.ColArrestOutcome, "PB1 Name", "PB1 Arrested", "PB1 Arrest Date"},
		{"BHD100", "1", "Ravi", "Yes", "2024-03-01"},
	}))

	ec, err := Reconcile(records(), tables, arrests, today)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	for _, g := range ec.Groups() {
		if g.Active.Len() != 0 || g.Closed.Len() != 1 {
			t.Fatalf("group %s: expected 0 active and 1 closed, got %d/%d", g.Name, g.Active.Len(), g.Closed.Len())
		}
	}
	suspects, _ := ec.Group(entity.Suspects)
	closed := suspects.Closed.Rows[0]
	if closed.Get(entity.ColCaseStatus) != entity.LegalCaseStatus {
		t.Fatalf("expected legal case status, got %q", closed.Get(entity.ColCaseStatus))
	}
	if closed.Get(entity.ColDateClosed) != "03/05/2024" {
		t.Fatalf("expected close date stamp, got %q", closed.Get(entity.ColDateClosed))
	}
}

func TestNewRequiresCoreDeps(t *testing.T) {
	if _, err := New(Deps{}, Config{}); err == nil {
		t.Fatal("expected error for missing deps")
	}
}

func TestDryRunCopyKeepsOriginal(t *testing.T) {
	wb := &fakeWorkbook{tables: workbookTables()}
	d := newTestDispatcher(t, wb, Deps{}, Config{})
	if _, err := d.DryRun().Run(context.Background(), "run1", "test"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(wb.written) != 0 {
		t.Fatal("expected dry run copy not to write")
	}
	if _, err := d.Run(context.Background(), "run2", "test"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(wb.written) != 1 {
		t.Fatal("expected original dispatcher to write")
	}
}
