package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rinsuki-lab/alvr-dive/pkg/shell"
	"github.com/rinsuki-lab/alvr-dive/pkg/yaml"
)

// LoadConfig applies all configs to v in order, so later configs override fields
func LoadConfig(v any) {
	for _, data := range configs {
		if err := yaml.Unmarshal(data, v); err != nil {
			Logger.Warn().Err(err).Msg("[app] read config")
		}
	}
}

var configs [][]byte

func initConfig(confs []string) {
	configs = nil

	if confs == nil {
		confs = []string{"dive.yaml"}
	}

	for _, conf := range confs {
		if len(conf) == 0 {
			continue
		}
		if conf[0] == '{' {
			// config as raw YAML or JSON
			configs = append(configs, []byte(conf))
		} else if data := parseConfString(conf); data != nil {
			configs = append(configs, data)
		} else {
			// config as file
			if ConfigPath == "" {
				ConfigPath = conf
			}

			if data, _ = os.ReadFile(conf); data == nil {
				continue
			}

			data = []byte(shell.ReplaceEnvVars(string(data)))
			configs = append(configs, data)
		}
	}

	if ConfigPath != "" {
		if !filepath.IsAbs(ConfigPath) {
			if cwd, err := os.Getwd(); err == nil {
				ConfigPath = filepath.Join(cwd, ConfigPath)
			}
		}
		Info["config_path"] = ConfigPath
	}
}

func parseConfString(s string) []byte {
	i := strings.IndexByte(s, '=')
	if i < 0 {
		return nil
	}

	items := strings.Split(s[:i], ".")
	if len(items) < 2 {
		return nil
	}

	// `client.url=ws://...` => `{client: {url: ws://...}}`
	var pre string
	var suf = s[i+1:]
	for _, item := range items {
		pre += "{" + item + ": "
		suf += "}"
	}

	return []byte(pre + suf)
}

// MergedConfig - all configs merged in load order
func MergedConfig() map[string]any {
	m := map[string]any{}
	for _, data := range configs {
		if err := yaml.Merge(m, data); err != nil {
			Logger.Warn().Err(err).Msg("[app] merge config")
		}
	}
	return m
}
