// File: pkg/formatter/config_formatter.go
package formatter

import "fmt"

// FormatSettings renders flattened configuration values read from source (usually the config
// file path). Structured formats emit the key/value map as is.
func (f *StorageFormatter) FormatSettings(source string, settings map[string]string) (string, error) {
	if f.format != FormatTable {
		return f.encode(settings)
	}

	if len(settings) == 0 {
		return "No configuration values set. Use 'bucketeer config set <key> <value>'.\n", nil
	}

	table := NewTable([]string{"KEY", "VALUE"})
	for _, k := range sortedKeys(settings) {
		table.AddRow([]string{k, settings[k]})
	}

	title := FormatSectionTitle(fmt.Sprintf("Configuration (%s)", source))
	return title + "\n" + table.String() + "\n", nil
}
