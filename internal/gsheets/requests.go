package gsheets

import (
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"

	"google.golang.org/api/sheets/v4"
)

// writeRequests builds the batch that replaces each table's sheet: missing
// sheets are added, the grid is resized to fit, old values are cleared and
// the new values written from A1.
func writeRequests(existing []*sheets.SheetProperties, tables []sheet.Named, numeric map[string]struct{}) []*sheets.Request {
	byTitle := make(map[string]*sheets.SheetProperties, len(existing))
	var nextID int64
	for _, p := range existing {
		byTitle[p.Title] = p
		if p.SheetId >= nextID {
			nextID = p.SheetId + 1
		}
	}

	var reqs []*sheets.Request
	for _, nt := range tables {
		if nt.Table == nil {
			continue
		}
		values := nt.Table.Values()
		rows := int64(len(values)) + 1
		cols := int64(max(len(nt.Table.Header), 1))
		grid := &sheets.GridProperties{RowCount: rows, ColumnCount: cols}

		p, ok := byTitle[nt.Name]
		if !ok {
			p = &sheets.SheetProperties{SheetId: nextID, Title: nt.Name, GridProperties: grid}
			nextID++
			byTitle[nt.Name] = p
			reqs = append(reqs, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{Properties: p},
			})
		} else {
			reqs = append(reqs, &sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId:         p.SheetId,
						GridProperties:  grid,
						ForceSendFields: []string{"SheetId"},
					},
					Fields: "gridProperties.rowCount,gridProperties.columnCount",
				},
			})
		}

		reqs = append(reqs,
			&sheets.Request{
				UpdateCells: &sheets.UpdateCellsRequest{
					Range:  &sheets.GridRange{SheetId: p.SheetId, ForceSendFields: []string{"SheetId"}},
					Fields: "userEnteredValue",
				},
			},
			&sheets.Request{
				UpdateCells: &sheets.UpdateCellsRequest{
					Start: &sheets.GridCoordinate{
						SheetId:         p.SheetId,
						ForceSendFields: []string{"SheetId", "RowIndex", "ColumnIndex"},
					},
					Rows:   gridRows(values, numeric),
					Fields: "userEnteredValue",
				},
			},
		)
	}
	return reqs
}

func gridRows(values [][]string, numeric map[string]struct{}) []*sheets.RowData {
	if len(values) == 0 {
		return nil
	}
	header := values[0]
	out := make([]*sheets.RowData, 0, len(values))
	out = append(out, rowData(header, header, nil))
	for _, row := range values[1:] {
		out = append(out, rowData(header, row, numeric))
	}
	return out
}

func rowData(header, row []string, numeric map[string]struct{}) *sheets.RowData {
	cells := make([]*sheets.CellData, len(row))
	for i, v := range row {
		cells[i] = &sheets.CellData{UserEnteredValue: cellValue(header[i], v, numeric)}
	}
	return &sheets.RowData{Values: cells}
}

func cellValue(col, v string, numeric map[string]struct{}) *sheets.ExtendedValue {
	if _, ok := numeric[col]; ok {
		if f, ok := sheet.Float(v); ok {
			return &sheets.ExtendedValue{NumberValue: &f}
		}
	}
	s := v
	return &sheets.ExtendedValue{StringValue: &s}
}
