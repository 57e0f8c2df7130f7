// Package version holds build metadata set through -ldflags -X.
package version

import "fmt"

//nolint:gochecknoglobals // overwritten by the linker
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders "<version> (<commit>, built <date>)" for startup logs and
// the loader's -version flag.
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, Commit, Date)
}
