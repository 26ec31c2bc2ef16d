// Package config loads the shell's settings from a config directory.
package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	DirName           = "cicada"
)

type Configuration struct {
	configFs  afero.Fs
	configDir string

	Prompt      string   `json:"prompt" validate:"required"`
	ColorPrompt bool     `json:"color_prompt"`
	PathPrepend []string `json:"path_prepend" validate:"dive,required"`
	PathAppend  []string `json:"path_append" validate:"dive,required"`

	HistoryFile  string `json:"history_file"`
	HistoryLog   string `json:"history_log"`
	HistoryLimit int    `json:"history_limit" validate:"gte=0"`

	JobNotifications bool `json:"job_notifications"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	return c.configFs
}

// Dir returns the directory the configuration was loaded from.
func (c *Configuration) Dir() string {
	return c.configDir
}

// SearchPath expands a leading ~ in the configured path entries.
func (c *Configuration) SearchPath(home string) (prepend, appendDirs []string) {
	expand := func(dirs []string) (out []string) {
		for _, dir := range dirs {
			switch {
			case dir == "~":
				dir = home
			case strings.HasPrefix(dir, "~/"):
				dir = filepath.Join(home, dir[2:])
			}
			out = append(out, dir)
		}
		return
	}
	return expand(c.PathPrepend), expand(c.PathAppend)
}

// HistoryFilePath returns the location of the line editor's recall history,
// or "" if it's disabled. The line editor opens the file itself so the path
// is on the real filesystem.
func (c *Configuration) HistoryFilePath() string {
	if c.HistoryFile == "" || c.HistoryLimit == 0 || c.configDir == "" {
		return ""
	}
	if filepath.IsAbs(c.HistoryFile) {
		return c.HistoryFile
	}
	return filepath.Join(c.configDir, c.HistoryFile)
}

// OpenHistoryLog opens the command record in an append only state. It returns
// nil and no error if the record is disabled.
func (c *Configuration) OpenHistoryLog() (afero.File, error) {
	if c.HistoryLog == "" {
		return nil, nil
	}
	if err := c.fs().MkdirAll(filepath.Dir(c.HistoryLog), 0700); err != nil {
		return nil, err
	}
	return c.fs().OpenFile(c.HistoryLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadHistoryLog opens the command record for reading.
func (c *Configuration) ReadHistoryLog() (afero.File, error) {
	return c.fs().OpenFile(c.HistoryLog, os.O_RDONLY, 0600)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Default returns the built in configuration, held in memory.
func Default() *Configuration {
	out := defaultConfig()
	out.configFs = afero.NewMemMapFs()
	return out
}
