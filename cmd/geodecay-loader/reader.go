package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"
)

// readBatchRows is the number of rows pulled from a row group per call.
const readBatchRows = 1000

// placeRow is one place read from a parquet file.
type placeRow struct {
	ID        string
	Name      string
	Latitude  *float64
	Longitude *float64
	Category  string
}

// placeColumns holds leaf column indexes; -1 means absent.
type placeColumns struct {
	id, name, latitude, longitude, category int
}

func (c placeColumns) validate() error {
	if c.latitude < 0 || c.longitude < 0 {
		return fmt.Errorf("latitude and longitude columns are required")
	}
	return nil
}

func resolvePlaceColumns(pf *parquet.File) placeColumns {
	cols := placeColumns{id: -1, name: -1, latitude: -1, longitude: -1, category: -1}
	for i, path := range pf.Schema().Columns() {
		if len(path) == 0 {
			continue
		}
		switch path[0] {
		case "id":
			cols.id = i
		case "name":
			cols.name = i
		case "latitude":
			cols.latitude = i
		case "longitude":
			cols.longitude = i
		case "category":
			cols.category = i
		}
	}
	return cols
}

// listParquetFiles returns the sorted *.parquet files of dir.
func listParquetFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, fmt.Errorf("glob parquet files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no parquet files found in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// readPlaces streams every row of a parquet file into cb. It stops early,
// without error, when cb returns false.
func readPlaces(path string, cb func(placeRow) bool) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return fmt.Errorf("open parquet: %w", err)
	}

	cols := resolvePlaceColumns(pf)
	if err := cols.validate(); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	buf := make([]parquet.Row, readBatchRows)
	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		for {
			n, readErr := rows.ReadRows(buf)
			for i := range n {
				if !cb(rowToPlace(buf[i], cols)) {
					return nil
				}
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return fmt.Errorf("read rows: %w", readErr)
			}
		}
	}
	return nil
}

func rowToPlace(row parquet.Row, cols placeColumns) placeRow {
	var p placeRow
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case cols.id:
			p.ID = v.String()
		case cols.name:
			p.Name = v.String()
		case cols.latitude:
			p.Latitude = floatValue(v)
		case cols.longitude:
			p.Longitude = floatValue(v)
		case cols.category:
			p.Category = v.String()
		}
	}
	return p
}

func floatValue(v parquet.Value) *float64 {
	var f float64
	switch v.Kind() {
	case parquet.Double:
		f = v.Double()
	case parquet.Float:
		f = float64(v.Float())
	case parquet.Int32:
		f = float64(v.Int32())
	case parquet.Int64:
		f = float64(v.Int64())
	default:
		return nil
	}
	return &f
}
