// File: pkg/formatter/storage_formatter.go
package formatter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"bucketeer/pkg/spaces"
	"bucketeer/pkg/storage"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts table, json or yaml; empty selects table
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q, expected one of: table, json, yaml", s)
	}
}

type StorageFormatter struct {
	format Format
}

func NewStorageFormatter(format Format) *StorageFormatter {
	if format == "" {
		format = FormatTable
	}
	return &StorageFormatter{format: format}
}

func (f *StorageFormatter) Format() Format {
	return f.format
}

type bucketView struct {
	Name         string            `json:"name" yaml:"name"`
	Provider     string            `json:"provider" yaml:"provider"`
	Location     string            `json:"location,omitempty" yaml:"location,omitempty"`
	StorageClass string            `json:"storageClass,omitempty" yaml:"storageClass,omitempty"`
	UsageBytes   int64             `json:"usageBytes" yaml:"usageBytes"`
	Versioning   *bool             `json:"versioning,omitempty" yaml:"versioning,omitempty"`
	CreatedAt    *time.Time        `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt    *time.Time        `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
	Labels       map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

type entryView struct {
	Kind         string     `json:"kind" yaml:"kind"`
	Path         string     `json:"path" yaml:"path"`
	Name         string     `json:"name" yaml:"name"`
	Size         int64      `json:"size" yaml:"size"`
	ETag         string     `json:"etag,omitempty" yaml:"etag,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty" yaml:"lastModified,omitempty"`
}

type objectView struct {
	Key          string            `json:"key" yaml:"key"`
	Bucket       string            `json:"bucket" yaml:"bucket"`
	Provider     string            `json:"provider" yaml:"provider"`
	Size         int64             `json:"size" yaml:"size"`
	ContentType  string            `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	CacheControl string            `json:"cacheControl,omitempty" yaml:"cacheControl,omitempty"`
	StorageClass string            `json:"storageClass,omitempty" yaml:"storageClass,omitempty"`
	ETag         string            `json:"etag,omitempty" yaml:"etag,omitempty"`
	LastModified *time.Time        `json:"lastModified,omitempty" yaml:"lastModified,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func (f *StorageFormatter) FormatBucketList(buckets []storage.Bucket) (string, error) {
	if f.format != FormatTable {
		views := make([]bucketView, 0, len(buckets))
		for _, b := range buckets {
			views = append(views, newBucketView(b))
		}
		return f.encode(views)
	}

	table := NewTable([]string{"BUCKET NAME", "PROVIDER", "LOCATION", "USAGE", "STORAGE CLASS", "CREATED"})
	for _, bucket := range buckets {
		table.AddRow([]string{
			bucket.Name,
			string(bucket.Provider),
			bucket.Location,
			storage.FormatBytes(bucket.UsageBytes),
			bucket.StorageClass,
			formatDate(bucket.CreatedAt, "2006-01-02"),
		})
	}
	return table.String() + "\n", nil
}

func (f *StorageFormatter) FormatBucketDetails(bucket storage.Bucket) (string, error) {
	if f.format != FormatTable {
		return f.encode(newBucketView(bucket))
	}

	overviewTable := NewTable([]string{"Parameter", "Value"})
	details := []struct {
		Key   string
		Value string
	}{
		{"Provider", string(bucket.Provider)},
		{"Location / Region", bucket.Location},
		{"Storage Class", bucket.StorageClass},
		{"Usage", storage.FormatBytes(bucket.UsageBytes)},
		{"Versioning", formatVersioning(bucket.Versioning)},
		// Format time in a standard, detailed format (RFC1123)
		{"Created On", formatDate(bucket.CreatedAt, time.RFC1123)},
		{"Updated On", formatDate(bucket.UpdatedAt, time.RFC1123)},
	}
	for _, detail := range details {
		overviewTable.AddRow([]string{detail.Key, detail.Value})
	}

	sections := []string{
		FormatHeaderSection("Bucket: " + bucket.Name),
		FormatSectionTitle("Overview") + "\n" + overviewTable.String(),
	}

	if len(bucket.Labels) > 0 {
		labelsTable := NewTable([]string{"Key", "Value"})
		for _, k := range sortedKeys(bucket.Labels) {
			labelsTable.AddRow([]string{k, bucket.Labels[k]})
		}
		sections = append(sections, FormatSectionTitle("Labels")+"\n"+labelsTable.String())
	}

	return joinSections(sections...), nil
}

// FormatFolderContents renders the immediate children of folderPath, folders first
func (f *StorageFormatter) FormatFolderContents(folderPath string, entries spaces.Entries) (string, error) {
	if f.format != FormatTable {
		views := make([]entryView, 0, len(entries))
		for _, e := range entries {
			views = append(views, entryView{
				Kind:         string(e.Kind),
				Path:         e.Path,
				Name:         e.Name,
				Size:         e.Size,
				ETag:         e.ETag,
				LastModified: timePtr(e.LastModified),
			})
		}
		return f.encode(views)
	}

	if len(entries) == 0 {
		return fmt.Sprintf("No files or folders found under '%s'.\n", displayPath(folderPath)), nil
	}

	table := NewTable([]string{"TYPE", "NAME", "SIZE", "LAST MODIFIED"})
	for _, e := range entries.Folders() {
		table.AddRow([]string{string(e.Kind), e.Name + storage.Separator, "-", "-"})
	}
	for _, e := range entries.Files() {
		table.AddRow([]string{string(e.Kind), e.Name, storage.FormatBytes(e.Size), formatDate(e.LastModified, time.DateTime)})
	}

	title := FormatSectionTitle(fmt.Sprintf("%s (%d folders, %d files)", displayPath(folderPath), len(entries.Folders()), len(entries.Files())))
	return title + "\n" + table.String() + "\n", nil
}

func (f *StorageFormatter) FormatFolderList(prefix string, folders []string) (string, error) {
	if f.format != FormatTable {
		return f.encode(folders)
	}
	if len(folders) == 0 {
		return fmt.Sprintf("No folders found under '%s'.\n", displayPath(prefix)), nil
	}

	table := NewTable([]string{"FOLDER", "NAME"})
	names := spaces.GetActualFileNames(trimSeparators(folders))
	for i, folder := range folders {
		table.AddRow([]string{folder, names[i]})
	}
	return table.String() + "\n", nil
}

func (f *StorageFormatter) FormatObjectDetails(obj storage.Object) (string, error) {
	view := objectView{
		Key:          obj.Key,
		Bucket:       obj.Bucket,
		Provider:     string(obj.Provider),
		Size:         obj.Size,
		ContentType:  obj.ContentType,
		CacheControl: obj.CacheControl,
		StorageClass: obj.StorageClass,
		ETag:         obj.ETag,
		LastModified: timePtr(obj.LastModified),
		Metadata:     obj.Metadata,
	}
	if f.format != FormatTable {
		return f.encode(view)
	}

	table := NewTable([]string{"Parameter", "Value"})
	table.AddRow([]string{"Bucket", obj.Bucket})
	table.AddRow([]string{"Provider", string(obj.Provider)})
	table.AddRow([]string{"Size", storage.FormatBytes(obj.Size)})
	table.AddRow([]string{"Content Type", obj.ContentType})
	table.AddRow([]string{"Cache Control", obj.CacheControl})
	table.AddRow([]string{"Storage Class", obj.StorageClass})
	table.AddRow([]string{"ETag", obj.ETag})
	table.AddRow([]string{"Last Modified", formatDate(obj.LastModified, time.RFC1123)})
	for _, k := range sortedKeys(obj.Metadata) {
		table.AddRow([]string{"meta:" + k, obj.Metadata[k]})
	}

	return joinSections(FormatHeaderSection("Object: "+obj.Key), table.String()), nil
}

func (f *StorageFormatter) encode(v any) (string, error) {
	switch f.format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("error encoding JSON output: %w", err)
		}
		return string(data) + "\n", nil
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("error encoding YAML output: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("format %q cannot encode structured output", f.format)
	}
}

func newBucketView(b storage.Bucket) bucketView {
	view := bucketView{
		Name:         b.Name,
		Provider:     string(b.Provider),
		Location:     b.Location,
		StorageClass: b.StorageClass,
		UsageBytes:   b.UsageBytes,
		CreatedAt:    timePtr(b.CreatedAt),
		UpdatedAt:    timePtr(b.UpdatedAt),
		Labels:       b.Labels,
	}
	if b.Versioning != nil {
		enabled := b.Versioning.Enabled
		view.Versioning = &enabled
	}
	return view
}

func formatVersioning(v *storage.Versioning) string {
	switch {
	case v == nil:
		return "Unknown"
	case v.Enabled:
		return "Enabled"
	default:
		return "Disabled"
	}
}

func formatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(layout)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func displayPath(p string) string {
	if strings.Trim(p, storage.Separator) == "" {
		return storage.Separator
	}
	return p
}

func trimSeparators(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = strings.TrimSuffix(p, storage.Separator)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
