package cmd

// version is set from main via SetVersionInfo at startup.
var version = "dev"

// SetVersionInfo records build-time version information for use by the
// commands and the metrics provider.
func SetVersionInfo(v string) {
	if v != "" {
		version = v
	}
	rootCmd.Version = version
}
