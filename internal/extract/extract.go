// Package extract reads the four raw record sets of a run from the case
// management database.
package extract

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

// Interview records joined to their person boxes. Feeds suspect ids, the
// interview dates and the strength of case features.
const cifsSQL = `
SELECT *
FROM dataentry_cifnepal AS cif
INNER JOIN dataentry_personboxnepal AS pb ON cif.id = pb.cif_id`

// Main victims of each interview.
const victimsSQL = `
SELECT *
FROM public.dataentry_person AS p
INNER JOIN dataentry_cifnepal AS cif ON p.id = cif.main_pv_id`

// Suspects listed in person boxes.
const suspectsSQL = `
SELECT *
FROM public.dataentry_personboxnepal AS pb
INNER JOIN public.dataentry_person AS p ON pb.person_id = p.id`

const addressesSQL = `
SELECT ad1.name AS address1, ad2.id AS address2_id, ad2.name AS address2
FROM public.dataentry_address1 AS ad1
INNER JOIN public.dataentry_address2 AS ad2 ON ad1.id = ad2.address1_id`

type queryer interface {
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
}

// Records are the raw inputs of one run.
type Records struct {
	Cifs      *sheet.Table
	Victims   *sheet.Table
	Suspects  *sheet.Table
	Addresses *sheet.Table
}

type Source struct {
	conn queryer
}

// NewSource accepts a *pgxpool.Pool or anything else that can Query.
func NewSource(conn queryer) *Source {
	return &Source{conn: conn}
}

// Load runs the four extraction queries concurrently. The first failure
// cancels the others.
func (s *Source) Load(ctx context.Context) (*Records, error) {
	rec := &Records{}
	g, gctx := errgroup.WithContext(ctx)

	load := func(name, query string, dst **sheet.Table) {
		g.Go(func() error {
			t, err := s.table(gctx, query)
			if err != nil {
				return fmt.Errorf("extract %s: %w", name, err)
			}
			*dst = t
			logger.Debug("[Extract][Load] Loaded record set", "set", name, "rows", t.Len())
			return nil
		})
	}
	load("cifs", cifsSQL, &rec.Cifs)
	load("victims", victimsSQL, &rec.Victims)
	load("suspects", suspectsSQL, &rec.Suspects)
	load("addresses", addressesSQL, &rec.Addresses)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Source) table(ctx context.Context, query string) (*sheet.Table, error) {
	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	keep := make([]bool, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		header[i] = f.Name
		// Joined tables share column names such as id; the left table wins.
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}
		keep[i] = true
	}

	t := sheet.New()
	for i, col := range header {
		if keep[i] {
			t.Header = append(t.Header, col)
		}
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rec := make(sheet.Record, len(t.Header))
		for i, v := range values {
			if i < len(keep) && keep[i] {
				rec[header[i]] = Cell(v)
			}
		}
		t.Rows = append(t.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Cell renders a database value the way it appears on a sheet.
func Cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format("2006-01-02")
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return sheet.FormatFloat(x)
	case float32:
		return sheet.FormatFloat(float64(x))
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return ""
		}
		return Cell(dv)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
