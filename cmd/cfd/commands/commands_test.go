package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/cda-client/internal/constants"
	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

const cyclicResponse = `{
  "skip": 0, "limit": 10, "total": 1,
  "items": [
    {"sys": {"id": "a", "type": "Entry", "contentType": {"sys": {"id": "node", "type": "Link", "linkType": "ContentType"}}},
     "fields": {"title": "A", "next": {"sys": {"type": "Link", "linkType": "Entry", "id": "b"}},
                "image": {"sys": {"type": "Link", "linkType": "Asset", "id": "missing"}}}}
  ],
  "includes": {
    "Entry": [
      {"sys": {"id": "b", "type": "Entry"}, "fields": {"title": "B", "next": {"sys": {"type": "Link", "linkType": "Entry", "id": "a"}}}}
    ]
  }
}`

func TestRunResolve_JSON(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := runResolve(&out, constants.FormatJSON, []byte(cyclicResponse), false)
	require.NoError(t, err)

	var decoded struct {
		Items []struct {
			Sys    delivery.Sys   `json:"sys"`
			Fields map[string]any `json:"fields"`
		} `json:"items"`
		Errors []delivery.ResolutionError `json:"errors"`
	}

	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded.Items, 1)

	next, ok := decoded.Items[0].Fields["next"].(map[string]any)
	require.True(t, ok)

	back, ok := next["fields"].(map[string]any)["next"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"id": "a", "type": "Link", "linkType": "Entry"}, back["sys"])
	assert.Nil(t, decoded.Items[0].Fields["image"])

	require.Len(t, decoded.Errors, 1)
	assert.Equal(t, delivery.ResolutionError{ID: "missing", LinkType: "Asset", Reason: delivery.ReasonNotFound}, decoded.Errors[0])
}

func TestRunResolve_Table(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := runResolve(&out, constants.FormatTable, []byte(cyclicResponse), false)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "node")
	assert.Contains(t, text, "Entry(b)")
	assert.Contains(t, text, "Unresolved links:")
	assert.Contains(t, text, "missing")
}

func TestRunResolve_Formats(t *testing.T) {
	t.Parallel()

	for _, format := range []string{constants.FormatYAML, constants.FormatDump} {
		t.Run(format, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer

			err := runResolve(&out, format, []byte(cyclicResponse), false)
			require.NoError(t, err)
			assert.Contains(t, out.String(), "missing")
		})
	}
}

func TestRunResolve_Errors(t *testing.T) {
	t.Parallel()

	t.Run("fail on unresolved links", func(t *testing.T) {
		t.Parallel()

		err := runResolve(&bytes.Buffer{}, constants.FormatJSON, []byte(cyclicResponse), true)
		require.ErrorIs(t, err, ErrUnresolvedLinks)
	})

	t.Run("invalid document", func(t *testing.T) {
		t.Parallel()

		err := runResolve(&bytes.Buffer{}, constants.FormatJSON, []byte(`{"items": 3}`), false)
		require.ErrorIs(t, err, delivery.ErrInvalidDocument)
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		err := runResolve(&bytes.Buffer{}, "xml", []byte(cyclicResponse), false)
		require.ErrorIs(t, err, ErrUnknownOutputFormat)
	})
}

func TestReadInput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "response.json")
	require.NoError(t, os.WriteFile(path, []byte(cyclicResponse), constants.ConfigFilePerm))

	data, err := readInput(nil, path)
	require.NoError(t, err)
	assert.JSONEq(t, cyclicResponse, string(data))

	data, err = readInput(strings.NewReader("{}"), "-")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	_, err = readInput(nil, filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)

	_, err = readInput(nil, "")
	require.ErrorIs(t, err, constants.ErrDocumentPathRequired)
}

func TestCreateClient_RequiresCredentials(t *testing.T) {
	t.Parallel()

	_, _, err := createClient(&Config{Token: "token", Resolve: "eager", Cache: "none"})
	require.ErrorIs(t, err, constants.ErrNoSpaceConfigured)

	_, _, err = createClient(&Config{Space: "space1", Resolve: "eager", Cache: "none"})
	require.ErrorIs(t, err, constants.ErrNoTokenConfigured)

	client, closer, err := createClient(&Config{Space: "space1", Token: "token", Resolve: "selective", Cache: "memory"})
	require.NoError(t, err)
	defer closer()

	assert.NotNil(t, client.Entries())
	assert.Len(t, client.DecodeOptions(), 2)
}

func TestShowConfig_MasksToken(t *testing.T) {
	t.Parallel()

	config := &Config{Space: "space1", Token: "secret-token", Resolve: "eager", Cache: "none"}

	var out bytes.Buffer

	require.NoError(t, showConfig(&out, constants.FormatJSON, config.Masked()))
	assert.NotContains(t, out.String(), "secret-token")
	assert.Contains(t, out.String(), constants.MaskedSecret)
	assert.Equal(t, "secret-token", config.Token)

	out.Reset()
	require.NoError(t, showConfig(&out, constants.FormatTable, config.Masked()))
	assert.Contains(t, out.String(), "space1")
	assert.NotContains(t, out.String(), "secret-token")
}

func TestConfig_DecodeOptions(t *testing.T) {
	t.Parallel()

	_, err := (&Config{Resolve: "lazy"}).decodeOptions(delivery.NopLogger{})
	require.ErrorIs(t, err, delivery.ErrUnknownResolvePolicy)

	opts, err := (&Config{Resolve: "selective"}).decodeOptions(delivery.NopLogger{})
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}

func TestConfig_CreateCache(t *testing.T) {
	t.Parallel()

	cache, closer, err := (&Config{Cache: "none"}).createCache()
	require.NoError(t, err)
	assert.Nil(t, cache)
	closer()

	cache, closer, err = (&Config{Cache: "Memory"}).createCache()
	require.NoError(t, err)
	assert.IsType(t, &delivery.MemoryCache{}, cache)
	closer()

	_, _, err = (&Config{Cache: "redis"}).createCache()
	require.ErrorIs(t, err, delivery.ErrUnsupportedCacheType)

	_, _, err = (&Config{Cache: "none,memory"}).createCache()
	require.ErrorIs(t, err, delivery.ErrInvalidCacheTiers)

	_, _, err = (&Config{Cache: "memory,nats", NATSURL: "nats://127.0.0.1:1"}).createCache()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating nats cache")
}

func TestQueryFlags_Params(t *testing.T) {
	t.Parallel()

	flags := queryFlags{
		contentType: "post",
		limit:       5000,
		include:     3,
		order:       []string{"-sys.createdAt"},
		filters:     map[string]string{"fields.slug": "intro"},
	}

	values := flags.params().ToValues()
	assert.Equal(t, "post", values.Get("content_type"))
	assert.Equal(t, "1000", values.Get("limit"))
	assert.Equal(t, "3", values.Get("include"))
	assert.Equal(t, "-sys.createdAt", values.Get("order"))
	assert.Equal(t, "intro", values.Get("fields.slug"))

	flags.include = -1
	assert.Empty(t, flags.params().ToValues().Get("include"))
}

func TestSummarizeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "nil", value: nil, want: "null"},
		{name: "string", value: "hello", want: `"hello"`},
		{name: "long string", value: strings.Repeat("x", 30), want: `"` + strings.Repeat("x", 9) + `…"`},
		{name: "list", value: []any{1, 2}, want: "[2 items]"},
		{name: "object", value: map[string]any{"a": 1}, want: "{1 keys}"},
		{name: "number", value: json.Number("42"), want: "42"},
		{name: "link", value: &delivery.Entity{Sys: delivery.Sys{ID: "b", Type: "Entry"}}, want: "-> Entry(b)"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.want, summarizeValue(testCase.value, 10))
		})
	}
}

func TestNewWriterLogger(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	logger := newWriterLogger(&out)
	logger.Debug("Resolved document", map[string]interface{}{"items": 1})
	logger.Warn("Unresolved link", map[string]interface{}{"id": "missing"})

	text := out.String()
	assert.Contains(t, text, `"msg"="Resolved document"`)
	assert.Contains(t, text, `"level"="warn"`)
	assert.Contains(t, text, `"id"="missing"`)
}
