package version

// Overridden at build time with -ldflags "-X .../internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = ""
	Dirty   = "false"
)

// Info is the build metadata served by /api/version and logged at startup.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Dirty   bool   `json:"dirty"`
}

func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date, Dirty: Dirty == "true"}
}
