package handlers

import (
	"net/http"
	"runtime"
	"sync"

	"github.com/fulmenhq/gofulmen/crucible"
)

// AppName is reported by /version and `quotachat version`.
const AppName = "quotachat"

var (
	buildMu sync.RWMutex
	build   = BuildInfo{Name: AppName, Version: "dev", Commit: "unknown", BuildDate: "unknown"}
)

// SetVersionInfo records the linker-injected build metadata.
func SetVersionInfo(version, commit, buildDate string) {
	buildMu.Lock()
	defer buildMu.Unlock()
	build.Version, build.Commit, build.BuildDate = version, commit, buildDate
}

type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

type DependencyVersions struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// VersionResponse is the /version body.
type VersionResponse struct {
	App          BuildInfo          `json:"app"`
	Dependencies DependencyVersions `json:"dependencies"`
	Runtime      RuntimeInfo        `json:"runtime"`
}

// CurrentVersion snapshots build, dependency and runtime details.
func CurrentVersion() VersionResponse {
	buildMu.RLock()
	app := build
	buildMu.RUnlock()
	app.GoVersion = runtime.Version()

	v := crucible.GetVersion()
	return VersionResponse{
		App:          app,
		Dependencies: DependencyVersions{Gofulmen: v.Gofulmen, Crucible: v.Crucible},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	}
}

func VersionHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CurrentVersion())
}
