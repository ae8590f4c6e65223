package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yacobolo/sitecss"
)

const (
	defaultConfigPath = ".sitecss.yaml"
	defaultDevIP      = "::"
	defaultServeIP    = "0.0.0.0"
	defaultPort       = 4200
	sslDir            = "ssl"
)

var k = koanf.New(".")

// loadConfig loads configuration with precedence: flags > env > file > defaults.
// It must be called after cobra parses flags (in PreRunE or RunE).
func loadConfig(cmd *cobra.Command) error {
	// Resolve config file path from flag
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// Load config file and env vars
	if err := loadConfigFromPath(configPath); err != nil {
		return err
	}

	// 3. CLI flags (highest precedence, only flags that were explicitly set)
	if err := k.Load(changedFlags(cmd.Flags()), nil); err != nil {
		return fmt.Errorf("loading command flags: %w", err)
	}

	return nil
}

// changedFlags provides the explicitly set flags. Flag defaults stay out of
// koanf so they never shadow file or env values stored under other keys.
func changedFlags(fs *pflag.FlagSet) *posflag.Posflag {
	return posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		if !f.Changed {
			return "", nil
		}
		return f.Name, posflag.FlagVal(fs, f)
	})
}

// loadConfigFromPath loads configuration from a file and environment variables.
// This is separated from loadConfig to allow testing without a cobra command.
func loadConfigFromPath(configPath string) error {
	// 1. Config file (lowest precedence among providers)
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	// 2. Environment variables (SITECSS_* prefix)
	if err := k.Load(env.Provider("SITECSS_", ".", envKey), nil); err != nil {
		return fmt.Errorf("loading environment variables: %w", err)
	}

	return nil
}

// hyphenatedKeys are config keys whose env names would otherwise map to a
// nested key
var hyphenatedKeys = map[string]string{
	"keep_expanded": "keep-expanded",
	"output_format": "output-format",
}

// envKey maps an environment variable to its config key.
// SITECSS_PAGES -> pages, SITECSS_SERVER_PORT -> server.port,
// SITECSS_KEEP_EXPANDED -> keep-expanded.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, "SITECSS_"))
	if mapped, ok := hyphenatedKeys[key]; ok {
		return mapped
	}
	return strings.ReplaceAll(key, "_", ".")
}

// addSiteFlags registers the flags shared by commands that build
func addSiteFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("pages", "src/pages", "Directory containing the pages")
	f.String("out", "dist", "Output directory")
	f.StringSlice("patterns", nil, "Page glob patterns relative to the pages directory")
	f.String("macros", "", "Macro source file")
	f.String("utilities", "", "Utilities stylesheet")
	f.StringSlice("imports", nil, "Directories searched by stylesheet @import")
	f.StringSlice("safelist-class", nil, "Class names never purged or compressed")
	f.StringSlice("safelist-pattern", nil, "Regular expressions for class names never purged or compressed")
	f.Bool("purge", true, "Drop rules whose classes a page never uses")
	f.Bool("keep-expanded", false, "Keep expanded class names (no purge, no compression)")
}

// addServerFlags registers listen flags
func addServerFlags(cmd *cobra.Command, defaultIP string) {
	f := cmd.Flags()
	f.StringP("ip", "i", defaultIP, "The IP to listen on")
	f.IntP("port", "p", defaultPort, "The port to listen on")
	f.String("cert", "", "TLS certificate file")
	f.String("key", "", "TLS key file")
}

// buildSiteConfig constructs the library's Config struct from koanf state.
func buildSiteConfig() (sitecss.Config, error) {
	config := sitecss.DefaultConfig()
	config.PagesDir = getStringWithFallback("pages", "pages", config.PagesDir)
	config.OutDir = getStringWithFallback("out", "out", config.OutDir)
	config.Patterns = getStringsWithFallback("patterns", "patterns", config.Patterns)
	config.MacroFile = getStringWithFallback("macros", "macros", "")
	config.UtilitiesFile = getStringWithFallback("utilities", "utilities", "")
	config.ImportDirs = getStringsWithFallback("imports", "imports", nil)
	config.SafelistClasses = getStringsWithFallback("safelist-class", "safelist.classes", nil)
	config.SafelistPatterns = getStringsWithFallback("safelist-pattern", "safelist.patterns", nil)
	config.Purge = getBoolWithFallback("purge", "purge", config.Purge)
	config.KeepExpanded = getBoolWithFallback("keep-expanded", "keep-expanded", false)

	verbose := getBoolWithFallback("verbose", "verbose", false)
	level := getStringWithFallback("log-level", "log.level", "info")
	if verbose {
		level = "debug"
	}
	config.Logger = newLogger(level, getStringWithFallback("log-format", "log.format", "text"), os.Stderr)

	wd, err := os.Getwd()
	if err != nil {
		return config, fmt.Errorf("working directory: %w", err)
	}
	config.RootDir = wd

	return config, nil
}

// serverAddr returns the listen address and TLS files. TLS files default to
// ssl/cert.pem and ssl/privkey.pem when both exist.
func serverAddr(defaultIP string) (addr, certFile, keyFile string) {
	ip := getStringWithFallback("ip", "server.ip", defaultIP)
	port := getIntWithFallback("port", "server.port", defaultPort)

	certFile = getStringWithFallback("cert", "server.cert", "")
	keyFile = getStringWithFallback("key", "server.key", "")
	if certFile == "" && keyFile == "" {
		cert, key := filepath.Join(sslDir, "cert.pem"), filepath.Join(sslDir, "privkey.pem")
		if fileExists(cert) && fileExists(key) {
			certFile, keyFile = cert, key
		}
	}

	return net.JoinHostPort(ip, strconv.Itoa(port)), certFile, keyFile
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// getStringWithFallback checks the flag key first, then the config file key, then returns the default.
func getStringWithFallback(flagKey, configKey, defaultVal string) string {
	if v := k.String(flagKey); v != "" {
		return v
	}
	if v := k.String(configKey); v != "" {
		return v
	}
	return defaultVal
}

// getStringsWithFallback checks the flag key first, then the config file key, then returns the default.
func getStringsWithFallback(flagKey, configKey string, defaultVal []string) []string {
	if v := k.Strings(flagKey); len(v) > 0 {
		return v
	}
	if v := k.Strings(configKey); len(v) > 0 {
		return v
	}
	return defaultVal
}

// getBoolWithFallback checks the flag key first, then the config file key, then returns the default.
func getBoolWithFallback(flagKey, configKey string, defaultVal bool) bool {
	if k.Exists(flagKey) {
		return k.Bool(flagKey)
	}
	if k.Exists(configKey) {
		return k.Bool(configKey)
	}
	return defaultVal
}

// getIntWithFallback checks the flag key first, then the config file key, then returns the default.
func getIntWithFallback(flagKey, configKey string, defaultVal int) int {
	if k.Exists(flagKey) {
		return k.Int(flagKey)
	}
	if k.Exists(configKey) {
		return k.Int(configKey)
	}
	return defaultVal
}
