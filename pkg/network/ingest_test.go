package network_test

import (
	"context"
	"testing"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/common"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/network"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/store/memory"
)

func sheetFor(name, caseID, suspectCaseID string, pairs ...[2]string) []common.LinkRow {
	rows := make([]common.LinkRow, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, common.LinkRow{
			Name:             name,
			Source:           p[0],
			Target:           p[1],
			RelationshipType: "Phone Contact",
			Direction:        common.DirectionForward,
			CaseID:           caseID,
			SuspectCaseID:    suspectCaseID,
		})
	}
	return rows
}

func TestIngestTwiceStoresOneEdge(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	rows := sheetFor("Ravi", "200", "200.PB1", [2]string{"98", "97"}, [2]string{"98", "96"})

	first, err := network.Ingest(ctx, s, rows)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if first.EdgesCreated != 2 || first.AccountsCreated != 3 || first.ReusedSuspect {
		t.Fatalf("unexpected first ingest %+v", first)
	}

	second, err := network.Ingest(ctx, s, rows)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !second.ReusedSuspect || second.SuspectID != first.SuspectID {
		t.Fatalf("expected suspect to be reused, got %+v", second)
	}
	if second.EdgesCreated != 0 || second.AccountsCreated != 0 {
		t.Fatalf("expected nothing new, got %+v", second)
	}

	g, err := s.LoadGraph(ctx)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(g.Edges) != 2 || len(g.Suspects) != 1 || len(g.Cases) != 1 {
		t.Fatalf("expected 2 edges, 1 suspect, 1 case, got %d/%d/%d", len(g.Edges), len(g.Suspects), len(g.Cases))
	}
	combos := map[string]int{}
	for _, e := range g.Edges {
		combos[e.ComboID]++
	}
	for combo, n := range combos {
		if n != 1 {
			t.Fatalf("expected combo %s once, got %d", combo, n)
		}
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	if _, err := network.Ingest(ctx, s, sheetFor("Ravi", "200", "200.PB1", [2]string{"98", "55"})); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if _, err := network.Ingest(ctx, s, sheetFor("Hari", "300", "300.PB1", [2]string{"55", "98"}, [2]string{"55", "44"})); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	n, err := network.Recalculate(ctx, s)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	// Hari's stats stay at zero and are not rewritten.
	if n != 1 {
		t.Fatalf("expected 1 suspect updated, got %d", n)
	}

	suspects, err := s.ListSuspects(ctx)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	// "55" was created as Ravi's target, so Hari's edges from it have no
	// source suspect and only Ravi's edge counts.
	if suspects[0].FirstDegreeLinks != 1 || suspects[1].FirstDegreeLinks != 0 {
		t.Fatalf("unexpected first degree links %+v", suspects)
	}

	n, err = network.Recalculate(ctx, s)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no writes on unchanged graph, got %d", n)
	}
}

func TestIngestEmptyAndInvalid(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	if res, err := network.Ingest(ctx, s, nil); err != nil || res.EdgesCreated != 0 {
		t.Fatalf("expected empty result, got %+v, %v", res, err)
	}
	rows := sheetFor("Ravi", "200", "", [2]string{"98", "97"})
	if _, err := network.Ingest(ctx, s, rows); err == nil {
		t.Fatal("expected error for missing suspect case id")
	}
}
