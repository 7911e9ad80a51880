// Package constants defines shared configuration constants.
package constants

var (
	ConfigFile = "config.yaml"

	DefaultDir = ".hookprof"

	// ConfigEnvVar names a config file that replaces ~/.hookprof/config.yaml.
	ConfigEnvVar = "HOOKPROF_CONFIG"

	// Formats lists the report output formats.
	Formats = []string{FormatTable, FormatJSON, FormatYAML, FormatCSV}

	// Orders lists the accepted sort directions.
	Orders = []string{OrderAsc, OrderDesc}
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatCSV   = "csv"
)

// Sort directions.
const (
	OrderAsc  = "ASC"
	OrderDesc = "DESC"
)
