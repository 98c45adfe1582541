package store

import (
	"errors"
	"strings"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/common"
)

var ErrNotFound = errors.New("not found")

// InBatches hands items to fn in slices of at most size elements. A size
// of zero or less sends everything at once.
func InBatches[T any](items []T, size int, fn func(batch []T) error) error {
	if size <= 0 {
		size = len(items)
	}
	for len(items) > 0 {
		n := min(size, len(items))
		if err := fn(items[:n]); err != nil {
			return err
		}
		items = items[n:]
	}
	return nil
}

// AccountNames lists the source and target accounts of rows once each, in
// order of first appearance. Blank names are dropped.
func AccountNames(rows []common.LinkRow) []string {
	seen := make(map[string]struct{}, len(rows)*2)
	var out []string
	for _, r := range rows {
		for _, name := range [2]string{r.Source, r.Target} {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
