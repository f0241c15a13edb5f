// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/calfront/calfront/internal/exc"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	c, err := Load(OptionWithDir(t.TempDir()), OptionWithLookupEnv(env(nil)))
	require.NoError(t, err)
	require.Equal(t, Default(), c)
	level, err := c.Level()
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, level)
	enc, err := c.LegacyEncoding()
	require.NoError(t, err)
	require.Equal(t, charmap.CodePage850, enc)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, `
roots = ["objects", "$HOME/nav"]
encoding = "windows-1252"
max_concurrency = 4
log_level = "debug"
watch_debounce = "750ms"
snapshot = ".calfront/index.pb"
`)
	c, err := Load(OptionWithPath(filepath.Join(dir, FileName)), OptionWithLookupEnv(env(nil)))
	require.NoError(t, err)
	require.Equal(t, &Config{
		Roots:          []string{"objects", "$HOME/nav"},
		Encoding:       "windows-1252",
		MaxConcurrency: 4,
		LogLevel:       "debug",
		WatchDebounce:  Duration(750 * time.Millisecond),
		Snapshot:       ".calfront/index.pb",
	}, c)
	enc, err := c.LegacyEncoding()
	require.NoError(t, err)
	require.Equal(t, charmap.Windows1252, enc)
}

func TestLoadEnv(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "encoding = \"latin1\"\nmax_concurrency = 4\n")
	c, err := Load(OptionWithDir(dir), OptionWithLookupEnv(env(map[string]string{
		"CALFRONT_ROOTS":           "a" + string(filepath.ListSeparator) + "b",
		"CALFRONT_MAX_CONCURRENCY": "8",
		"CALFRONT_LOG_LEVEL":       "WARN",
		"CALFRONT_WATCH_DEBOUNCE":  "1s",
		"CALFRONT_SNAPSHOT":        "index.pb",
		"CALFRONT_ENCODING":        "",
	})))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, c.Roots)
	require.Equal(t, "latin1", c.Encoding)
	require.Equal(t, 8, c.MaxConcurrency)
	require.Equal(t, Duration(time.Second), c.WatchDebounce)
	require.Equal(t, "index.pb", c.Snapshot)
	level, err := c.Level()
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, level)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content string
		env     map[string]string
		code    string
	}{
		{name: "syntax", content: "roots = [", code: exc.CodeUnsupportedFileFormat},
		{name: "unknown key", content: "colour = \"blue\"", code: exc.CodeUnsupportedFileFormat},
		{name: "bad duration", content: "watch_debounce = \"soon\""},
		{name: "bad encoding", content: "encoding = \"ebcdic\""},
		{name: "bad level", content: "log_level = \"loud\""},
		{name: "negative concurrency", content: "max_concurrency = -1"},
		{name: "bad env number", env: map[string]string{"CALFRONT_MAX_CONCURRENCY": "many"}},
		{name: "bad env duration", env: map[string]string{"CALFRONT_WATCH_DEBOUNCE": "later"}},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			dir := writeConfig(t, testCase.content)
			_, err := Load(OptionWithDir(dir), OptionWithLookupEnv(env(testCase.env)))
			require.Error(t, err)
			if testCase.code != "" {
				var e exc.Exception
				require.True(t, errors.As(err, &e), "%v", err)
				require.Equal(t, testCase.code, e.Code())
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	_, err := Load(OptionWithPath(filepath.Join(t.TempDir(), "nope.toml")), OptionWithLookupEnv(env(nil)))
	var e exc.Exception
	require.True(t, errors.As(err, &e), "%v", err)
	require.Equal(t, exc.CodeFileNotFound, e.Code())
}
