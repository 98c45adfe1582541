// Package address composes the human readable address of a record from the
// two-level address tables of the extraction source.
package address

import (
	"strings"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"
)

// Columns of the raw address extract.
const (
	ColAddress1   = "address1"
	ColAddress2ID = "address2_id"
	ColAddress2   = "address2"
)

// Book maps an address2 id to its composed "<address2>, <address1>" string.
type Book struct {
	entries map[string]string
}

// NewBook indexes the raw address rows. Later rows for the same id win.
func NewBook(raw *sheet.Table) *Book {
	b := &Book{entries: make(map[string]string, raw.Len())}
	if raw == nil {
		return b
	}
	for _, rec := range raw.Rows {
		id := normalizeID(rec.Get(ColAddress2ID))
		if id == "" {
			continue
		}
		b.entries[id] = Compose(rec.Get(ColAddress2), rec.Get(ColAddress1))
	}
	return b
}

// Compose joins the two address levels, skipping empty parts.
func Compose(address2, address1 string) string {
	address2 = strings.TrimSpace(address2)
	address1 = strings.TrimSpace(address1)
	switch {
	case address2 == "":
		return address1
	case address1 == "":
		return address2
	}
	return address2 + ", " + address1
}

// Resolve returns the composed address for id. Unknown and zero ids miss.
func (b *Book) Resolve(id string) (string, bool) {
	id = normalizeID(id)
	if id == "" {
		return "", false
	}
	addr, ok := b.entries[id]
	return addr, ok
}

// Len returns the number of indexed addresses.
func (b *Book) Len() int {
	return len(b.entries)
}

func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimSuffix(id, ".0")
	if id == "0" {
		return ""
	}
	return id
}
