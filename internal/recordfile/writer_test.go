package recordfile

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/dbupload/internal/datastore"
	"github.com/lepinkainen/dbupload/internal/testutil"
)

func sampleRecords() []datastore.Record {
	return []datastore.Record{
		datastore.NewRecord(
			datastore.Col("id", datastore.Int(1)),
			datastore.Col("name", datastore.Text("Alice")),
			datastore.Col("score", datastore.Real(2)),
		),
		datastore.NewRecord(
			datastore.Col("id", datastore.Int(2)),
			datastore.Col("name", datastore.Text("123")),
			datastore.Col("avatar", datastore.Blob([]byte("hi"))),
			datastore.Col("email", datastore.Null()),
		),
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{input: "table", expected: FormatTable},
		{input: "JSON", expected: FormatJSON},
		{input: " yaml ", expected: FormatYAML},
		{input: "yml", expected: FormatYAML},
		{input: "csv", expected: FormatCSV},
		{input: "xml", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleRecords()))

	expected := `[
  {
    "id": 1,
    "name": "Alice",
    "score": 2.0
  },
  {
    "id": 2,
    "name": "123",
    "avatar": {
      "$base64": true,
      "encoded": "aGk="
    },
    "email": null
  }
]
`
	assert.Equal(t, expected, buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, FormatJSON, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, sampleRecords()))

	expected := `- id: 1
  name: Alice
  score: 2.0
- id: 2
  name: "123"
  avatar: !!binary aGk=
  email: null
`
	assert.Equal(t, expected, buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, FormatYAML, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleRecords()))

	expected := "id,name,score,avatar,email\n" +
		"1,Alice,2,,\n" +
		"2,123,,x'6869',\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteTableIsRejected(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, FormatTable, sampleRecords()))
}

func TestFormatYAMLFloat(t *testing.T) {
	assert.Equal(t, "2.0", formatYAMLFloat(2))
	assert.Equal(t, "0.5", formatYAMLFloat(0.5))
	assert.Equal(t, "1e+21", formatYAMLFloat(1e21))
	assert.Equal(t, ".nan", formatYAMLFloat(math.NaN()))
	assert.Equal(t, "-.inf", formatYAMLFloat(math.Inf(-1)))
}

func TestWriteFile(t *testing.T) {
	env := testutil.NewTestEnv(t)
	path := env.Path("out", "users.json")

	written, err := WriteFile(path, FormatJSON, sampleRecords(), false)
	require.NoError(t, err)
	assert.True(t, written)
	first := env.ReadFileString("out/users.json")

	written, err = WriteFile(path, FormatJSON, nil, false)
	require.NoError(t, err)
	assert.False(t, written, "existing file is kept without overwrite")
	assert.Equal(t, first, env.ReadFileString("out/users.json"))

	written, err = WriteFile(path, FormatJSON, nil, true)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, "[]\n", env.ReadFileString("out/users.json"))
}

func TestWriteThenLoadRoundTrip(t *testing.T) {
	env := testutil.NewTestEnv(t)

	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			path := env.Path("roundtrip." + string(format))
			_, err := WriteFile(path, format, sampleRecords(), true)
			require.NoError(t, err)

			loaded, err := LoadRecords(path)
			require.NoError(t, err)
			assertRecords(t, sampleRecords(), loaded)
		})
	}
}
