package version

import "runtime"

// 构建时通过 -ldflags "-X github.com/awsl-project/ranstat/internal/version.Version=..." 注入
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info returns "<version> (<commit>)", used in startup logs
func Info() string {
	return Version + " (" + Commit + ")"
}

// Full is printed by `ranstat version`.
func Full() string {
	return Version + " (commit: " + Commit + ", built: " + BuildTime + ", " + runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH + ")"
}

// UserAgent identifies this build to brokers and other peers
func UserAgent() string {
	return "ranstat/" + Version
}
