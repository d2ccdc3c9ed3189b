package xlsxparser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/csvload/internal/coerce"
)

func writeTemplate(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseTemplate(t *testing.T) {
	path := writeTemplate(t, [][]interface{}{
		{"Field Path", "Data Type", "Required"},
		{"_id", "objectid", "required"},
		{"salario_base", "Decimal", "optional"},
		{},
		{"fecha_inicio", "date", ""},
		{"activo", "bit", "Y"},
		{"observaciones"},
	})

	schema, err := Parse(path)
	require.NoError(t, err)

	require.Len(t, schema.Fields, 5)
	assert.Equal(t, FieldDef{Path: "_id", Directive: coerce.ObjectID, Required: true, Order: 1}, schema.Fields[0])
	assert.Equal(t, coerce.Number, schema.Field("salario_base").Directive)
	assert.Equal(t, coerce.Date, schema.Field("fecha_inicio").Directive)
	assert.Equal(t, coerce.Boolean, schema.Field("activo").Directive)
	assert.Equal(t, coerce.Auto, schema.Field("observaciones").Directive)
	assert.Nil(t, schema.Field("nope"))
	assert.Equal(t, []string{"_id", "activo"}, schema.RequiredPaths())
}

func TestParseTemplateRejectsUnknownType(t *testing.T) {
	path := writeTemplate(t, [][]interface{}{
		{"Field Path", "Data Type", "Required"},
		{"valor", "blob", "required"},
	})

	_, err := Parse(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blob")
	assert.Contains(t, err.Error(), "row 2")
}

func TestParseTemplateRejectsDuplicatePath(t *testing.T) {
	path := writeTemplate(t, [][]interface{}{
		{"Field Path", "Data Type", "Required"},
		{"valor", "number"},
		{"valor", "string"},
	})

	_, err := Parse(path)
	assert.ErrorContains(t, err, "defined twice")
}

func TestParseMissingTemplate(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}
