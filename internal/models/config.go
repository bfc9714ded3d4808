package models

import "runtime/debug"

// GitProperties describes the build that is serving requests. Values come
// from the VCS stamp the Go toolchain embeds in the binary.
type GitProperties struct {
	GitBuildVersion   string `json:"git.build.version"`
	GitCommitId       string `json:"git.commit.id"`
	GitCommitIdAbbrev string `json:"git.commit.id.abbrev"`
	GitCommitTime     string `json:"git.commit.time"`
	GitDirty          string `json:"git.dirty"`
	GoVersion         string `json:"go.version"`
}

// NewGitProperties reads the VCS settings of info. A nil info (binaries
// built without module support) yields "unknown" values.
func NewGitProperties(info *debug.BuildInfo) GitProperties {
	props := GitProperties{
		GitBuildVersion:   "unknown",
		GitCommitId:       "unknown",
		GitCommitIdAbbrev: "unknown",
		GitDirty:          "unknown",
	}
	if info == nil {
		return props
	}
	props.GoVersion = info.GoVersion
	if v := info.Main.Version; v != "" {
		props.GitBuildVersion = v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			props.GitCommitId = s.Value
			props.GitCommitIdAbbrev = s.Value
			if len(s.Value) >= 7 {
				props.GitCommitIdAbbrev = s.Value[:7]
			}
		case "vcs.time":
			props.GitCommitTime = s.Value
		case "vcs.modified":
			props.GitDirty = s.Value
		}
	}
	return props
}

// RegionBounds is the service area: a center and a full span in degrees.
type RegionBounds struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	LatSpan float64 `json:"latSpan"`
	LonSpan float64 `json:"lonSpan"`
}

// ConfigModel is the entry of the config endpoint.
type ConfigModel struct {
	GitProperties GitProperties `json:"gitProperties"`
	Id            string        `json:"id"`
	Name          string        `json:"name"`
	Timezone      string        `json:"timezone"`
	LastUpdated   int64         `json:"lastUpdated"`
	StopCount     int           `json:"stopCount"`
	Modes         []string      `json:"modes"`
	RegionBounds  *RegionBounds `json:"regionBounds,omitempty"`
}
