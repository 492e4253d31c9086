package app

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

var Version = "0.3.0"
var UserAgent = "dive/" + Version

var ConfigPath string
var Info = map[string]any{
	"version": Version,
}

// Init loads configs and logger, should be called before any module Init
func Init(confs []string) {
	initConfig(confs)
	initLogger()

	platform := fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
	Logger.Info().Str("version", Version).Str("platform", platform).Msg("dive")
	Logger.Debug().Str("version", runtime.Version()).Msg("build")

	if ConfigPath != "" {
		Logger.Info().Str("path", ConfigPath).Msg("config")
	}
}

// FullVersion - version with VCS revision and build time
func FullVersion() string {
	var revision string
	buildTime := time.Now()

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if len(setting.Value) > 7 {
					revision = " (" + setting.Value[:7] + ")"
				} else {
					revision = " (" + setting.Value + ")"
				}
			case "vcs.time":
				buildTime, _ = time.Parse(time.RFC3339, setting.Value)
			}
		}
	}

	return fmt.Sprintf(
		"dive version %s%s: %s %s/%s",
		Version, revision, buildTime.Local().String(), runtime.GOOS, runtime.GOARCH,
	)
}
