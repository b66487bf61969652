package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []Format
		wantErr bool
	}{
		{name: "empty selects defaults", in: nil, want: DefaultFormats},
		{name: "md alias", in: []string{"MD", " json "}, want: []Format{FormatMarkdown, FormatJSON}},
		{name: "duplicates collapse", in: []string{"csv", "csv", "xlsx"}, want: []Format{FormatCSV, FormatXLSX}},
		{name: "unknown", in: []string{"pdf"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormats(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "AP_Results_2024_25", safeName("AP Results 2024/25"))
	assert.Equal(t, "a_b_c", safeName(`a:b\c`))
}

func TestEncodeJSON_KeepsOrderAndKeys(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, sampleDatabase(t)))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "schools db", decoded["database"])

	out := buf.String()
	assert.Less(t, strings.Index(out, `"Grades"`), strings.Index(out, `"Broken"`))
	assert.Contains(t, out, `"levels_sum_check"`)
	assert.Contains(t, out, `"ap_proficient_check_error": "column APIB_IND not found"`)
	assert.Contains(t, out, `"K|1"`)
}

func TestEncodeValuesCSV(t *testing.T) {
	db := sampleDatabase(t)
	grades, _ := db.Tables.Get("Grades")
	field, _ := grades.Fields.Get("grade")

	var buf bytes.Buffer
	require.NoError(t, EncodeValuesCSV(&buf, field))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, utf8BOM+"value,count,percentage", lines[0])
	assert.Equal(t, "K|1,1000,66.67", lines[1])
	assert.Equal(t, "NULL,100,6.67", lines[3])
}

func TestEncodeValuesCSV_FailedField(t *testing.T) {
	db := sampleDatabase(t)
	grades, _ := db.Tables.Get("Grades")
	field, _ := grades.Fields.Get("school")

	var buf bytes.Buffer
	assert.Error(t, EncodeValuesCSV(&buf, field))
}
