package cid

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Column names the reference table must carry. The id column is the
// 6-digit region code; it is kept as a string so leading zeros survive.
const (
	columnID       = "id"
	columnProvince = "province"
	columnCity     = "city"
	columnDistrict = "district"
)

// loadRegionTable reads the reference table into a code -> Region map.
// The first row is a header; columns are matched by name so the table may
// carry them in any order. Published administrative-division tables are
// sometimes GBK encoded, so the reader can be transcoded on the way in.
func loadRegionTable(r io.Reader, gbk bool) (map[string]Region, error) {
	if gbk {
		r = transform.NewReader(r, simplifiedchinese.GBK.NewDecoder())
	}

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read reference table header: %w", err)
	}

	columns := map[string]int{}
	for i, name := range header {
		columns[name] = i
	}
	for _, required := range []string{columnID, columnProvince, columnCity, columnDistrict} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("reference table is missing the %q column", required)
		}
	}

	regions := map[string]Region{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read reference table row: %w", err)
		}
		regions[row[columns[columnID]]] = Region{
			Province: row[columns[columnProvince]],
			City:     row[columns[columnCity]],
			District: row[columns[columnDistrict]],
		}
	}

	return regions, nil
}
