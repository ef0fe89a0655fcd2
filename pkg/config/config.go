// Package config loads and saves the persisted pstack defaults.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"os/user"
	"path"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".pstack"
	configFile string = "config.yml"
)

// Config defines all configuration options available to be set through
// the config file. Command line flags override these values; the
// resulting effective configuration is passed explicitly into every
// component that needs it, it is never rediscovered through a global.
type Config struct {
	// AllThreads selects whether traces are printed for every thread of
	// the target process or only the thread that reported the event.
	AllThreads *bool `yaml:"all-threads,omitempty"`

	// ShowFramePointers adds the frame pointer column to the trace output.
	ShowFramePointers bool `yaml:"show-frame-pointers"`

	// ImageFallback enables the manual image symbol table search when the
	// symbol engine has no name for an address.
	ImageFallback bool `yaml:"image-fallback"`

	// ShowInstruction annotates the innermost frame of every trace with
	// the decoded instruction at its program counter.
	ShowInstruction bool `yaml:"show-instruction"`

	// MaxFrameDepth is the maximum number of frames walked per thread.
	MaxFrameDepth int `yaml:"max-frame-depth"`

	// ImageCacheSize is the number of parsed module images kept by the
	// static symbol cache.
	ImageCacheSize int `yaml:"image-cache-size"`
}

// LoadConfig attempts to populate a Config object from the config.yml file.
func LoadConfig() *Config {
	err := createConfigPath()
	if err != nil {
		fmt.Printf("Could not create config directory: %v.", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Printf("Unable to get config file path: %v.", err)
		return &Config{}
	}

	f, err := os.Open(fullConfigFile)
	if err != nil {
		f, err = createDefaultConfig(fullConfigFile)
		if err != nil {
			fmt.Printf("Error creating default config file: %v", err)
			return &Config{}
		}
	}
	defer func() {
		err := f.Close()
		if err != nil {
			fmt.Printf("Closing config file failed: %v.", err)
		}
	}()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		fmt.Printf("Unable to read config data: %v.", err)
		return &Config{}
	}

	var c Config
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		fmt.Printf("Unable to decode config file: %v.", err)
		return &Config{}
	}

	if c.MaxFrameDepth <= 0 {
		c.MaxFrameDepth = DefaultMaxFrameDepth
	}
	if c.ImageCacheSize <= 0 {
		c.ImageCacheSize = DefaultImageCacheSize
	}

	return &c
}

// Default limits used when the config file does not set them.
const (
	DefaultMaxFrameDepth  = 256
	DefaultImageCacheSize = 16
)

// AllThreadsDefault returns the configured all-threads setting, or true
// when the config file does not set one.
func (c *Config) AllThreadsDefault() bool {
	if c.AllThreads == nil {
		return true
	}
	return *c.AllThreads
}

// SaveConfig will marshal and save the config struct to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	f, err := os.Create(fullConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %v", err)
	}
	err = writeDefaultConfig(f)
	if err != nil {
		return nil, fmt.Errorf("unable to write default configuration: %v", err)
	}
	f.Seek(0, os.SEEK_SET)
	return f, nil
}

func writeDefaultConfig(f *os.File) error {
	_, err := f.WriteString(
		`# Configuration file for the pstack tool.

# Uncomment to print traces for the event thread only.
# all-threads: false

# Uncomment to always show frame pointers.
# show-frame-pointers: true

# Uncomment to always search module symbol tables when the symbol
# engine has no name for an address.
# image-fallback: true

# Maximum number of frames walked per thread.
max-frame-depth: 256
`)
	return err
}

// createConfigPath creates the directory structure at which all config files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	if configPath := os.Getenv("PSTACK_HOME"); configPath != "" {
		return path.Join(configPath, file), nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return path.Join(usr.HomeDir, configDir, file), nil
}
