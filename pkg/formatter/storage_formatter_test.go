package formatter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"bucketeer/pkg/common"
	"bucketeer/pkg/spaces"
	"bucketeer/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var created = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func sampleBucket() storage.Bucket {
	return storage.Bucket{
		Name:         "media",
		Provider:     common.Spaces,
		Location:     "nyc3",
		StorageClass: "STANDARD",
		CreatedAt:    created,
		UsageBytes:   5 << 20,
		Labels:       map[string]string{"team": "web", "env": "prod"},
		Versioning:   &storage.Versioning{Enabled: true},
	}
}

func sampleEntries() spaces.Entries {
	return spaces.Entries{
		{Kind: spaces.KindFolder, Path: "a/b/", Name: "b"},
		{Kind: spaces.KindFile, Path: "a/f.txt", Name: "f.txt", Size: 2048, LastModified: created},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "JSON": FormatJSON, " yaml ": FormatYAML, "table": FormatTable} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestBucketListTable(t *testing.T) {
	out, err := NewStorageFormatter(FormatTable).FormatBucketList([]storage.Bucket{sampleBucket()})
	require.NoError(t, err)

	for _, want := range []string{"BUCKET NAME", "media", "SPACES", "nyc3", "5.0 MB", "2024-06-01"} {
		assert.Contains(t, out, want)
	}
}

func TestBucketDetailsTable(t *testing.T) {
	out, err := NewStorageFormatter("").FormatBucketDetails(sampleBucket())
	require.NoError(t, err)

	for _, want := range []string{"Bucket: media", "Overview", "Enabled", "Labels", "team", "web"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "env"), strings.Index(out, "team"), "labels are sorted")
}

func TestBucketDetailsJSON(t *testing.T) {
	out, err := NewStorageFormatter(FormatJSON).FormatBucketDetails(sampleBucket())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "media", decoded["name"])
	assert.Equal(t, "SPACES", decoded["provider"])
	assert.Equal(t, true, decoded["versioning"])
	assert.Equal(t, float64(5<<20), decoded["usageBytes"])
	assert.NotContains(t, decoded, "updatedAt", "zero times are omitted")
}

func TestFolderContents(t *testing.T) {
	f := NewStorageFormatter(FormatTable)

	out, err := f.FormatFolderContents("a", sampleEntries())
	require.NoError(t, err)
	assert.Contains(t, out, "1 folders, 1 files")
	assert.Contains(t, out, "b/")
	assert.Contains(t, out, "f.txt")
	assert.Contains(t, out, "2.0 KB")

	out, err = f.FormatFolderContents("", spaces.Entries{})
	require.NoError(t, err)
	assert.Equal(t, "No files or folders found under '/'.\n", out)
}

func TestFolderContentsYAML(t *testing.T) {
	out, err := NewStorageFormatter(FormatYAML).FormatFolderContents("a", sampleEntries())
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "folder", decoded[0]["kind"])
	assert.Equal(t, "a/f.txt", decoded[1]["path"])
	assert.Equal(t, 2048, decoded[1]["size"])
}

func TestFolderList(t *testing.T) {
	f := NewStorageFormatter(FormatTable)
	out, err := f.FormatFolderList("", []string{"photos/", "videos/2024/"})
	require.NoError(t, err)
	assert.Contains(t, out, "photos/")
	assert.Contains(t, out, "2024")

	out, err = NewStorageFormatter(FormatJSON).FormatFolderList("", []string{"photos/"})
	require.NoError(t, err)
	assert.JSONEq(t, `["photos/"]`, out)
}

func TestObjectDetails(t *testing.T) {
	obj := storage.Object{
		Key:         "a/f.txt",
		Bucket:      "media",
		Provider:    common.AWS,
		Size:        12,
		ContentType: "text/plain",
		Metadata:    map[string]string{"owner": "ops"},
	}

	out, err := NewStorageFormatter(FormatTable).FormatObjectDetails(obj)
	require.NoError(t, err)
	assert.Contains(t, out, "Object: a/f.txt")
	assert.Contains(t, out, "text/plain")
	assert.Contains(t, out, "meta:owner")
	assert.Contains(t, out, "N/A", "missing timestamps render as N/A")

	out, err = NewStorageFormatter(FormatJSON).FormatObjectDetails(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"a/f.txt","bucket":"media","provider":"AWS","size":12,"contentType":"text/plain","metadata":{"owner":"ops"}}`, out)
}

func TestTable(t *testing.T) {
	assert.Empty(t, NewTable(nil).String())

	table := NewTable([]string{"K", "V"})
	table.AddRow([]string{"alpha", "1"})
	out := table.String()
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "K")
}

func TestFormatSettings(t *testing.T) {
	settings := map[string]string{
		"s3.region":              "nyc3",
		"provider":               "spaces",
		"storage.default_bucket": "media",
	}

	out, err := NewStorageFormatter(FormatTable).FormatSettings("/tmp/config.yaml", settings)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration (/tmp/config.yaml)")
	assert.Less(t, strings.Index(out, "provider"), strings.Index(out, "s3.region"))
	assert.Less(t, strings.Index(out, "s3.region"), strings.Index(out, "storage.default_bucket"))

	out, err = NewStorageFormatter(FormatJSON).FormatSettings("/tmp/config.yaml", settings)
	require.NoError(t, err)
	assert.JSONEq(t, `{"provider":"spaces","s3.region":"nyc3","storage.default_bucket":"media"}`, out)

	out, err = NewStorageFormatter(FormatYAML).FormatSettings("/tmp/config.yaml", settings)
	require.NoError(t, err)
	var decoded map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, settings, decoded)

	out, err = NewStorageFormatter(FormatTable).FormatSettings("/tmp/config.yaml", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "No configuration values set")
}
