// Package memory is an in-process NetworkStorage used for dry runs and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/common"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/network"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/store"
)

type Storage struct {
	mu        sync.Mutex
	graph     common.Graph
	edgeTypes []common.EdgeType
	nextID    int64
	// Writes counts the suspects touched by UpdateLinkStats.
	Writes int
}

var _ store.NetworkStorage = (*Storage)(nil)

func New() *Storage {
	return &Storage{edgeTypes: append([]common.EdgeType(nil), common.DefaultEdgeTypes...)}
}

func (s *Storage) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Storage) AddSuspect(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.graph.Suspects = append(s.graph.Suspects, common.Suspect{ID: id, Name: name})
	return id, nil
}

func (s *Storage) AddCase(ctx context.Context, caseNumber string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.graph.Cases = append(s.graph.Cases, common.Case{ID: id, Number: caseNumber})
	return id, nil
}

func (s *Storage) LinkCaseSuspect(ctx context.Context, caseID, suspectID int64, suspectCaseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.CaseSuspects = append(s.graph.CaseSuspects, common.CaseSuspect{
		ID:            s.id(),
		CaseID:        caseID,
		SuspectID:     suspectID,
		SuspectCaseID: suspectCaseID,
	})
	return nil
}

func (s *Storage) FindCaseSuspect(ctx context.Context, suspectCaseID string) (*common.CaseSuspect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cs := range s.graph.CaseSuspects {
		if cs.SuspectCaseID == suspectCaseID {
			link := cs
			return &link, nil
		}
	}
	return nil, nil
}

func (s *Storage) AddAccounts(ctx context.Context, rows []common.LinkRow, ownerID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := make(map[string]struct{}, len(s.graph.Accounts))
	for _, a := range s.graph.Accounts {
		existing[a.Name] = struct{}{}
	}
	planned := network.PlanAccounts(rows, ownerID, existing)
	for _, a := range planned {
		a.ID = s.id()
		s.graph.Accounts = append(s.graph.Accounts, a)
	}
	return len(planned), nil
}

func (s *Storage) AddEdges(ctx context.Context, rows []common.LinkRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts := make(map[string]common.Account, len(s.graph.Accounts))
	for _, a := range s.graph.Accounts {
		accounts[a.Name] = a
	}
	types := make(map[string]int64, len(s.edgeTypes))
	for _, t := range s.edgeTypes {
		types[t.Name] = t.ID
	}
	existing := make(map[string]struct{}, len(s.graph.Edges))
	for _, e := range s.graph.Edges {
		existing[e.ComboID] = struct{}{}
	}
	planned, _ := network.PlanEdges(rows, accounts, types, existing)
	for _, e := range planned {
		e.ID = s.id()
		s.graph.Edges = append(s.graph.Edges, e)
	}
	return len(planned), nil
}

func (s *Storage) LoadGraph(ctx context.Context) (*common.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &common.Graph{
		Suspects:     append([]common.Suspect(nil), s.graph.Suspects...),
		Accounts:     append([]common.Account(nil), s.graph.Accounts...),
		Edges:        append([]common.Edge(nil), s.graph.Edges...),
		Cases:        append([]common.Case(nil), s.graph.Cases...),
		CaseSuspects: append([]common.CaseSuspect(nil), s.graph.CaseSuspects...),
	}
	return g, nil
}

func (s *Storage) UpdateLinkStats(ctx context.Context, stats map[int64]common.LinkStats) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.graph.Suspects {
		st, ok := stats[s.graph.Suspects[i].ID]
		if !ok {
			continue
		}
		s.graph.Suspects[i].LinkStats = st
		n++
	}
	s.Writes += n
	return n, nil
}

func (s *Storage) GetSuspect(ctx context.Context, id int64) (*common.Suspect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sus := range s.graph.Suspects {
		if sus.ID == id {
			out := sus
			return &out, nil
		}
	}
	return nil, fmt.Errorf("suspect %d: %w", id, store.ErrNotFound)
}

func (s *Storage) ListSuspects(ctx context.Context) ([]common.Suspect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]common.Suspect(nil), s.graph.Suspects...), nil
}

// Seed replaces the stored graph. Ids are continued after the highest seeded
// id.
func (s *Storage) Seed(g common.Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = g
	s.nextID = 0
	bump := func(id int64) {
		if id > s.nextID {
			s.nextID = id
		}
	}
	for _, x := range g.Suspects {
		bump(x.ID)
	}
	for _, x := range g.Accounts {
		bump(x.ID)
	}
	for _, x := range g.Edges {
		bump(x.ID)
	}
	for _, x := range g.Cases {
		bump(x.ID)
	}
	for _, x := range g.CaseSuspects {
		bump(x.ID)
	}
}
