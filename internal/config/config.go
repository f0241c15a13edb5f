// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads calfront.toml and applies CALFRONT_* environment
// overrides on top of it. Command line flags are applied by the caller last.
package config

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/encoding"

	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/fs"
)

const (
	FileName  = "calfront.toml"
	EnvPrefix = "CALFRONT_"

	DefaultLogLevel      = "info"
	DefaultWatchDebounce = 200 * time.Millisecond
)

// Config is the resolved configuration of one run.
type Config struct {
	// Roots are the directories targets are resolved against. Empty selects
	// the platform defaults of the compiler.
	Roots []string `toml:"roots"`
	// Encoding names the code page of exports that are not UTF-8.
	Encoding string `toml:"encoding"`
	// MaxConcurrency bounds parallel parsing. Zero selects the CPU count.
	MaxConcurrency int      `toml:"max_concurrency"`
	LogLevel       string   `toml:"log_level"`
	WatchDebounce  Duration `toml:"watch_debounce"`
	// Snapshot is the file the symbol index is persisted to.
	Snapshot string `toml:"snapshot"`
}

// Duration reads TOML strings such as "250ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func Default() *Config {
	return &Config{
		Encoding:      fs.EncodingDefault,
		LogLevel:      DefaultLogLevel,
		WatchDebounce: Duration(DefaultWatchDebounce),
	}
}

type Option func(*loader)

// OptionWithPath loads the given file. The file must exist.
func OptionWithPath(path string) Option {
	return func(l *loader) {
		l.path = path
		l.required = true
	}
}

// OptionWithDir looks for calfront.toml in dir. A missing file leaves the
// defaults in place.
func OptionWithDir(dir string) Option {
	return func(l *loader) {
		l.path = filepath.Join(dir, FileName)
		l.required = false
	}
}

func OptionWithLookupEnv(lookupEnv func(string) (string, bool)) Option {
	return func(l *loader) {
		l.lookupEnv = lookupEnv
	}
}

type loader struct {
	path      string
	required  bool
	lookupEnv func(string) (string, bool)
}

// Load resolves the configuration from defaults, the optional file and the
// environment, in that order.
func Load(options ...Option) (*Config, error) {
	l := &loader{lookupEnv: os.LookupEnv}
	for _, option := range options {
		option(l)
	}
	c := Default()
	if l.path != "" {
		if err := c.decodeFile(l.path, l.required); err != nil {
			return nil, err
		}
	}
	if err := c.applyEnv(l.lookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) decodeFile(path string, required bool) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			if !required {
				return nil
			}
			return exc.Wrap(exc.Location{URI: path}, exc.CodeFileNotFound, err)
		}
		var perr toml.ParseError
		if errors.As(err, &perr) {
			loc := exc.Location{URI: path}
			loc.Line = int32(perr.Position.Line)
			return exc.New(loc, exc.CodeUnsupportedFileFormat, perr.Message)
		}
		return exc.Wrap(exc.Location{URI: path}, exc.CodeUnsupportedFileFormat, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return exc.New(exc.Location{URI: path}, exc.CodeUnsupportedFileFormat, fmt.Sprintf("unknown keys: %s", strings.Join(keys, ", ")))
	}
	return nil
}

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	if v, ok := lookupEnv(EnvPrefix + "ROOTS"); ok && v != "" {
		c.Roots = filepath.SplitList(v)
	}
	if v, ok := lookupEnv(EnvPrefix + "ENCODING"); ok && v != "" {
		c.Encoding = v
	}
	if v, ok := lookupEnv(EnvPrefix + "MAX_CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_CONCURRENCY: %w", EnvPrefix, err)
		}
		c.MaxConcurrency = n
	}
	if v, ok := lookupEnv(EnvPrefix + "LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookupEnv(EnvPrefix + "WATCH_DEBOUNCE"); ok && v != "" {
		if err := c.WatchDebounce.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%sWATCH_DEBOUNCE: %w", EnvPrefix, err)
		}
	}
	if v, ok := lookupEnv(EnvPrefix + "SNAPSHOT"); ok && v != "" {
		c.Snapshot = v
	}
	return nil
}

// Validate checks the values that are only interpreted later.
func (c *Config) Validate() error {
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must not be negative, got %d", c.MaxConcurrency)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must not be negative, got %s", time.Duration(c.WatchDebounce))
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.LegacyEncoding(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

func (c *Config) LegacyEncoding() (encoding.Encoding, error) {
	return fs.LookupEncoding(c.Encoding)
}
