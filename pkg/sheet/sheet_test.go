package sheet

import (
	"reflect"
	"strings"
	"testing"
)

func TestFromValuesPadsShortRows(t *testing.T) {
	tbl := FromValues([][]string{
		{"Case_ID", "Name", "Address"},
		{"100", "Asha"},
	})
	if tbl.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", tbl.Len())
	}
	if got := tbl.Rows[0].Get("Address"); got != "" {
		t.Fatalf("expected empty Address, got %q", got)
	}
	want := [][]string{{"Case_ID", "Name", "Address"}, {"100", "Asha", ""}}
	if !reflect.DeepEqual(tbl.Values(), want) {
		t.Fatalf("expected %v, got %v", want, tbl.Values())
	}
}

func TestDedupeByKeepsFirst(t *testing.T) {
	tbl := New("Suspect_ID", "Name")
	tbl.Append(Record{"Suspect_ID": "1.PB1", "Name": "old"})
	tbl.Append(Record{"Suspect_ID": "1.PB2", "Name": "other"})
	tbl.Append(Record{"Suspect_ID": "1.PB1", "Name": "new"})

	tbl.DedupeBy("Suspect_ID")

	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if tbl.Rows[0].Get("Name") != "old" {
		t.Fatalf("expected first occurrence to win, got %q", tbl.Rows[0].Get("Name"))
	}
}

func TestProjectAndRename(t *testing.T) {
	tbl := New("Name", "Extra")
	tbl.Append(Record{"Name": "Ravi", "Extra": "x"})
	tbl.Rename("Name", "Suspect_Name")

	p := tbl.Project([]string{"Suspect_Name", "Priority"})
	if !reflect.DeepEqual(p.Header, []string{"Suspect_Name", "Priority"}) {
		t.Fatalf("unexpected header %v", p.Header)
	}
	if p.Rows[0].Get("Suspect_Name") != "Ravi" || p.Rows[0].Get("Priority") != "" {
		t.Fatalf("unexpected row %v", p.Rows[0])
	}
	if _, ok := p.Rows[0]["Extra"]; ok {
		t.Fatal("expected Extra to be dropped by projection")
	}
}

func TestConcatUnionsHeaders(t *testing.T) {
	a := New("A")
	a.Append(Record{"A": "1"})
	b := New("B", "A")
	b.Append(Record{"A": "2", "B": "3"})

	c := Concat(a, nil, b)
	if !reflect.DeepEqual(c.Header, []string{"A", "B"}) {
		t.Fatalf("unexpected header %v", c.Header)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", c.Len())
	}
}

func TestCSVRoundTripSkipsBlankLines(t *testing.T) {
	in := "Case_ID,Name\n\n100,\"Doe, Jane\"\n,\n200,Ram\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if tbl.Rows[0].Get("Name") != "Doe, Jane" {
		t.Fatalf("expected quoted field to survive, got %q", tbl.Rows[0].Get("Name"))
	}

	out, err := EncodeCSV(tbl)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	want := "Case_ID,Name\n100,\"Doe, Jane\"\n200,Ram\n"
	if string(out) != want {
		t.Fatalf("expected %q, got %q", want, string(out))
	}
}

func TestReadCSVEmpty(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("\n\n")); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestNumericHelpers(t *testing.T) {
	if n, ok := Int("3.0"); !ok || n != 3 {
		t.Fatalf("expected 3, got %d (%v)", n, ok)
	}
	if _, ok := Float("  "); ok {
		t.Fatal("expected blank to be rejected")
	}
	if got := FormatFloat(0.25); got != "0.25" {
		t.Fatalf("expected 0.25, got %s", got)
	}
}

func TestFromValuesKeepsRawGrid(t *testing.T) {
	grid := [][]string{{"Factor", "Weight", "Factor"}, {"Recency", "1", "Eminence"}}
	tbl := FromValues(grid)
	if !reflect.DeepEqual(tbl.Raw, grid) {
		t.Fatalf("expected raw grid %v, got %v", grid, tbl.Raw)
	}
	if New("A").Raw != nil {
		t.Fatal("expected built table to have no raw grid")
	}
}
