package report

// Config holds configuration for report output.
type Config struct {
	// Dir is the directory JSON reports are written to.
	Dir string `mapstructure:"dir" default:"."`
}
