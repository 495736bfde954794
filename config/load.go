package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/facebookgo/stackerr"
	"gopkg.in/yaml.v3"
)

// Load reads config file. Files with .yaml and .yml extension are decoded as YAML,
// all others as JSON. Returned config is not merged with Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stackerr.Wrap(err)
	}
	return Decode(path, data)
}

// Decode decodes data in format chosen by name extension.
func Decode(name string, data []byte) (*Config, error) {
	conf := &Config{}
	var err error
	if isYAML(name) {
		err = yaml.Unmarshal(data, conf)
	} else {
		err = json.Unmarshal(data, conf)
	}
	if err != nil {
		return nil, stackerr.Newf("Config %s parse error: %v", filepath.Base(name), err)
	}
	return conf, nil
}

// Marshal encodes config in format chosen by name extension.
func Marshal(name string, conf *Config) []byte {
	var (
		data []byte
		err  error
	)
	if isYAML(name) {
		data, err = yaml.Marshal(conf)
	} else {
		data, err = json.MarshalIndent(conf, "", "  ")
	}
	if err != nil {
		panic(err)
	}
	return data
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
