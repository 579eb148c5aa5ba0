package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-git/gcfg/v2"
)

const (
	defaultNamespace = "default"
	defaultKeep      = 20
	defaultAddr      = "127.0.0.1:2750"
	maxIncludeDepth  = 10
)

// Config is the resolved configuration: file values, then environment and
// flags on top.
type Config struct {
	Symphony SymphonyConfig
	Cache    CacheConfig
	Serve    ServeConfig
}

// SymphonyConfig locates and authenticates against the control plane.
type SymphonyConfig struct {
	URL        string
	User       string
	Password   string
	Namespaces []string
}

// CacheConfig controls the local snapshot database.
type CacheConfig struct {
	Path string
	Keep int
}

// ServeConfig controls the daemon.
type ServeConfig struct {
	Addr string
}

// configDir returns ~/.config/symtree.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".config", "symtree"), nil
}

func stateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	dir := filepath.Join(home, ".local", "state", "symtree")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	return dir, nil
}

// parseConfig reads a git-config style file into a multi-valued map keyed
// by "section.key" (or "section.subsection.key"). Values accumulate in file
// order, so the last one wins for single-valued keys. include.path pulls in
// another file at the point of the directive, relative to the including
// file. Missing includes are skipped.
func parseConfig(path string, seen map[string]bool) (map[string][]string, error) {
	m := make(map[string][]string)
	if err := parseConfigInto(m, path, seen, 0); err != nil {
		return nil, err
	}
	return m, nil
}

func parseConfigInto(m map[string][]string, path string, seen map[string]bool, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("%s: includes nested too deeply", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if seen == nil {
		seen = make(map[string]bool)
	}
	if seen[abs] {
		slog.Debug("config include cycle, skipping", "path", abs)
		return nil
	}
	seen[abs] = true

	data, err := os.ReadFile(abs)
	if err != nil {
		return err
	}

	cb := func(section, subsection, key, value string, blank bool) error {
		if key == "" {
			return nil // section header
		}
		section = strings.ToLower(section)
		key = strings.ToLower(key)
		if blank {
			value = "true"
		}

		if section == "include" && subsection == "" && key == "path" {
			inc := expandHome(value)
			if !filepath.IsAbs(inc) {
				inc = filepath.Join(filepath.Dir(abs), inc)
			}
			err := parseConfigInto(m, inc, seen, depth+1)
			if errors.Is(err, os.ErrNotExist) {
				slog.Debug("config include not found", "path", inc)
				return nil
			}
			return err
		}

		name := section + "." + key
		if subsection != "" {
			name = section + "." + subsection + "." + key
		}
		m[name] = append(m[name], value)
		return nil
	}

	if err := gcfg.ReadWithCallback(bytes.NewReader(data), cb); err != nil {
		return fmt.Errorf("parse %s: %w", abs, err)
	}
	return nil
}

// lastValue returns the last value for key, or "".
func lastValue(m map[string][]string, key string) string {
	vals := m[key]
	if len(vals) == 0 {
		return ""
	}
	return vals[len(vals)-1]
}

func expandHome(p string) string {
	rest, ok := strings.CutPrefix(p, "~/")
	if !ok {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, rest)
}

// hydrateConfig builds a Config from the parsed map, applying defaults for
// everything left unset.
func hydrateConfig(m map[string][]string) *Config {
	cfg := &Config{
		Symphony: SymphonyConfig{
			URL:      lastValue(m, "symphony.url"),
			User:     lastValue(m, "symphony.user"),
			Password: lastValue(m, "symphony.password"),
		},
		Cache: CacheConfig{
			Path: expandHome(lastValue(m, "cache.path")),
			Keep: defaultKeep,
		},
		Serve: ServeConfig{
			Addr: lastValue(m, "serve.addr"),
		},
	}

	for _, ns := range m["symphony.namespace"] {
		if ns = strings.TrimSpace(ns); ns != "" {
			cfg.Symphony.Namespaces = append(cfg.Symphony.Namespaces, ns)
		}
	}
	if len(cfg.Symphony.Namespaces) == 0 {
		cfg.Symphony.Namespaces = []string{defaultNamespace}
	}

	if v := lastValue(m, "cache.keep"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			slog.Warn("invalid cache.keep, using default", "value", v, "default", defaultKeep)
		} else {
			cfg.Cache.Keep = n
		}
	}
	if cfg.Serve.Addr == "" {
		cfg.Serve.Addr = defaultAddr
	}
	return cfg
}

// loadConfig reads the config file at path, or the default location when
// path is empty. A missing file yields the defaults.
func loadConfig(path string) (*Config, error) {
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "config")
	}

	m, err := parseConfig(path, nil)
	if errors.Is(err, os.ErrNotExist) {
		return hydrateConfig(nil), nil
	}
	if err != nil {
		return nil, err
	}
	return hydrateConfig(m), nil
}

// cachePath returns the snapshot database path, defaulting to the state
// directory.
func (c *Config) cachePath() (string, error) {
	if c.Cache.Path != "" {
		if err := os.MkdirAll(filepath.Dir(c.Cache.Path), 0700); err != nil {
			return "", fmt.Errorf("create cache dir: %w", err)
		}
		return c.Cache.Path, nil
	}
	dir, err := stateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "snapshots.db"), nil
}
