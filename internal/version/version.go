package version

// Version is the released version of ai-commit. Release builds override it
// with -ldflags "-X github.com/thomas-vilte/aicommit/internal/version.Version=...".
var Version = "0.1.0"

// FullVersion returns the version with the v prefix.
func FullVersion() string {
	return "v" + Version
}
