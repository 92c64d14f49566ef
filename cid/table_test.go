package cid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const testTable = `id,province,city,district
360730,江西省,赣州市,宁都县
110101,北京市,市辖区,东城区
`

func writeTestTable(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestNewParserFromFile(t *testing.T) {
	t.Run("loads a custom table", func(t *testing.T) {
		p, err := NewParserFromFile(writeTestTable(t, []byte(testTable)))
		require.NoError(t, err)

		region, err := p.Region("360730")
		require.NoError(t, err)
		require.Equal(t, "宁都县", region.District)
	})

	t.Run("columns may come in any order", func(t *testing.T) {
		reordered := "district,id,city,province\n宁都县,360730,赣州市,江西省\n"
		p, err := NewParserFromFile(writeTestTable(t, []byte(reordered)))
		require.NoError(t, err)

		region, err := p.Region("360730")
		require.NoError(t, err)
		require.Equal(t, Region{Province: "江西省", City: "赣州市", District: "宁都县"}, region)
	})

	t.Run("missing file is a construction error", func(t *testing.T) {
		_, err := NewParserFromFile(filepath.Join(t.TempDir(), "missing.csv"))
		require.Error(t, err)
	})

	t.Run("missing column is a construction error", func(t *testing.T) {
		broken := "id,province,city\n360730,江西省,赣州市\n"
		_, err := NewParserFromFile(writeTestTable(t, []byte(broken)))
		require.ErrorContains(t, err, "district")
	})

	t.Run("ragged row is a construction error", func(t *testing.T) {
		ragged := "id,province,city,district\n360730,江西省\n"
		_, err := NewParserFromFile(writeTestTable(t, []byte(ragged)))
		require.Error(t, err)
	})

	t.Run("gbk encoded table", func(t *testing.T) {
		encoded, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(testTable))
		require.NoError(t, err)

		p, err := NewParserFromFile(writeTestTable(t, encoded), WithGBK())
		require.NoError(t, err)

		region, err := p.Region("110101")
		require.NoError(t, err)
		require.Equal(t, "东城区", region.District)
	})
}

func TestEmbeddedTable(t *testing.T) {
	p := newTestParser(t)
	require.NotEmpty(t, p.regions)

	// every key in the shipped table is a 6-digit code
	for code := range p.regions {
		require.Len(t, code, 6)
		require.NoError(t, CheckIdentifier(code+"198601011113"), "code %s", code)
	}
}
