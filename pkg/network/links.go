package network

import (
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/common"
)

// ComputeLinks recomputes the link statistics of every suspect in g. Each
// suspect gets an entry, so suspects that lost their edges are reset to 0.
//
// First degree links count the edges a suspect is the source of. Second
// degree links count the distinct target accounts of those edges that are
// themselves the source of an edge of another suspect. Case links count the
// distinct other cases reachable through a shared account.
func ComputeLinks(g *common.Graph) map[int64]common.LinkStats {
	stats := make(map[int64]common.LinkStats, len(g.Suspects))
	for _, s := range g.Suspects {
		stats[s.ID] = common.LinkStats{}
	}

	// account -> suspects that own edges starting at it
	sourceOwners := make(map[int64]map[int64]struct{})
	for _, e := range g.Edges {
		if e.SourceSuspectID == nil || e.SourceAccountID == nil {
			continue
		}
		addTo(sourceOwners, *e.SourceAccountID, *e.SourceSuspectID)
	}

	first := make(map[int64]int)
	targets := make(map[int64]map[int64]struct{})
	for _, e := range g.Edges {
		if e.SourceSuspectID == nil || e.SourceAccountID == nil {
			continue
		}
		sid := *e.SourceSuspectID
		first[sid]++
		if e.TargetAccountID != nil {
			addTo(targets, sid, *e.TargetAccountID)
		}
	}

	second := make(map[int64]int)
	for sid, accts := range targets {
		for acct := range accts {
			for owner := range sourceOwners[acct] {
				if owner != sid {
					second[sid]++
					break
				}
			}
		}
	}

	firstCases := caseLinks(g, sourceOwners, false)
	secondCases := caseLinks(g, sourceOwners, true)

	for sid := range stats {
		stats[sid] = common.LinkStats{
			FirstDegreeLinks:      first[sid],
			SecondDegreeLinks:     second[sid],
			FirstDegreeCaseLinks:  len(firstCases[sid]),
			SecondDegreeCaseLinks: len(secondCases[sid]),
		}
	}
	return stats
}

type caseEntry struct {
	account int64
	caseNum string
}

// caseLinks indexes every edge by (account, case of its source suspect) on
// both sides of a self join on the shared account. The left side is keyed
// by the source account, the right side by the source account for first
// degree and by the target account for second degree links. Matches with
// differing case numbers are grouped by (account, originating case) and the
// reachable cases are attributed to the suspects owning the account.
func caseLinks(g *common.Graph, sourceOwners map[int64]map[int64]struct{}, secondDegree bool) map[int64]map[string]struct{} {
	caseNumbers := make(map[int64]string, len(g.Cases))
	for _, c := range g.Cases {
		caseNumbers[c.ID] = c.Number
	}
	suspectCases := make(map[int64][]string)
	for _, cs := range g.CaseSuspects {
		if n, ok := caseNumbers[cs.CaseID]; ok {
			suspectCases[cs.SuspectID] = append(suspectCases[cs.SuspectID], n)
		}
	}

	var left, right []caseEntry
	for _, e := range g.Edges {
		if e.SourceSuspectID == nil {
			continue
		}
		key2 := e.SourceAccountID
		if secondDegree {
			key2 = e.TargetAccountID
		}
		for _, c := range suspectCases[*e.SourceSuspectID] {
			if e.SourceAccountID != nil {
				left = append(left, caseEntry{account: *e.SourceAccountID, caseNum: c})
			}
			if key2 != nil {
				right = append(right, caseEntry{account: *key2, caseNum: c})
			}
		}
	}

	rightByAccount := make(map[int64]map[string]struct{})
	for _, r := range right {
		if rightByAccount[r.account] == nil {
			rightByAccount[r.account] = make(map[string]struct{})
		}
		rightByAccount[r.account][r.caseNum] = struct{}{}
	}

	// (account, originating case) -> reachable cases
	groups := make(map[caseEntry]map[string]struct{})
	for _, l := range left {
		for c2 := range rightByAccount[l.account] {
			if c2 == l.caseNum {
				continue
			}
			if groups[l] == nil {
				groups[l] = make(map[string]struct{})
			}
			groups[l][c2] = struct{}{}
		}
	}

	out := make(map[int64]map[string]struct{})
	for key, reached := range groups {
		for owner := range sourceOwners[key.account] {
			if out[owner] == nil {
				out[owner] = make(map[string]struct{})
			}
			for c := range reached {
				out[owner][c] = struct{}{}
			}
		}
	}
	return out
}

func addTo(m map[int64]map[int64]struct{}, key, value int64) {
	if m[key] == nil {
		m[key] = make(map[int64]struct{})
	}
	m[key][value] = struct{}{}
}

// Changed returns the entries of stats that differ from what is stored on
// the suspects.
func Changed(suspects []common.Suspect, stats map[int64]common.LinkStats) map[int64]common.LinkStats {
	stored := make(map[int64]common.LinkStats, len(suspects))
	for _, s := range suspects {
		stored[s.ID] = s.LinkStats
	}
	out := make(map[int64]common.LinkStats)
	for id, st := range stats {
		if cur, ok := stored[id]; ok && cur == st {
			continue
		}
		out[id] = st
	}
	return out
}
