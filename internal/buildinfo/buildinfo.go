package buildinfo

import "runtime"

// Set with -ldflags "-X tourlab/internal/buildinfo.Version=..."
var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

func Info() map[string]string {
	return map[string]string{
		"version":   Version,
		"commit":    Commit,
		"builtAt":   BuiltAt,
		"goVersion": runtime.Version(),
	}
}
