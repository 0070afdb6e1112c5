package config

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/cometbft/cometbft/libs/os"
)

// DefaultDirPerm is the default permissions used when creating directories.
const DefaultDirPerm = 0o700

// Keys and comments in the template must stay in sync with the
// mapstructure tags on Config and TreasuryAppConfig in config.go.
//
//go:embed config.toml.tpl
var configFileTemplate string

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate").Funcs(template.FuncMap{
		"StringsJoin": strings.Join,
	})
	if configTemplate, err = tmpl.Parse(configFileTemplate); err != nil {
		panic(err)
	}
}

// WriteConfigFile renders cfg through the embedded template and writes the
// result to configFilePath.
func WriteConfigFile(configFilePath string, cfg *Config) {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, cfg); err != nil {
		panic(err)
	}

	os.MustWriteFile(configFilePath, buffer.Bytes(), 0o644)
}
