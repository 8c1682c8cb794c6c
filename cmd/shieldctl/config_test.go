package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	flags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"

	"shieldwallet/internal/zerocash"
)

// baseArgs points the configuration and logs at a temporary directory.
func baseArgs(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	t.Cleanup(closeLogRotator)
	return dir, []string{
		"--configfile", filepath.Join(dir, "shieldctl.conf"),
		"--logdir", filepath.Join(dir, "logs"),
		"--paramsdir", filepath.Join(dir, "params"),
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir, args := baseArgs(t)
	cfg, command, err := loadConfig(append(args, "keygen"))
	require.NoError(t, err)
	require.Equal(t, "keygen", command)
	require.Same(t, zerocash.MainNetParams, cfg.params)
	require.Equal(t, filepath.Join(dir, "logs", "mainnet"), cfg.LogDir)
	require.Equal(t, defaultLogLevel, cfg.DebugLevel)
	require.FileExists(t, filepath.Join(cfg.LogDir, defaultLogFilename))
}

func TestLoadConfigFile(t *testing.T) {
	dir, args := baseArgs(t)
	conf := "[Application Options]\ntestnet=1\ndebuglevel=debug\nmetrics=1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shieldctl.conf"), []byte(conf), 0600))

	cfg, _, err := loadConfig(append(args, "ingest"))
	require.NoError(t, err)
	require.Same(t, zerocash.TestNetParams, cfg.params)
	require.Equal(t, filepath.Join(dir, "logs", "testnet"), cfg.LogDir)
	require.Equal(t, "debug", cfg.DebugLevel)
	require.True(t, cfg.Metrics)

	// The command line wins over the file.
	cfg, _, err = loadConfig(append(args, "--debuglevel", "warn", "ingest"))
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.DebugLevel)
}

func TestLoadConfigErrors(t *testing.T) {
	dir, args := baseArgs(t)

	t.Run("help", func(t *testing.T) {
		_, _, err := loadConfig([]string{"-h"})
		var flagsErr *flags.Error
		require.True(t, errors.As(err, &flagsErr))
		require.Equal(t, flags.ErrHelp, flagsErr.Type)
	})

	t.Run("no command", func(t *testing.T) {
		_, _, err := loadConfig(args)
		require.Error(t, err)
	})

	t.Run("unknown command", func(t *testing.T) {
		_, _, err := loadConfig(append(args, "mine"))
		require.Error(t, err)
	})

	t.Run("bad debug level", func(t *testing.T) {
		_, _, err := loadConfig(append(args, "--debuglevel", "loud", "keygen"))
		require.Error(t, err)
	})

	t.Run("bad config file", func(t *testing.T) {
		conf := filepath.Join(dir, "bad.conf")
		require.NoError(t, os.WriteFile(conf, []byte("nosuchoption=1\n"), 0600))
		_, _, err := loadConfig(append(append([]string(nil), args...), "--configfile", conf, "keygen"))
		require.Error(t, err)
	})
}

func TestParseAndSetDebugLevels(t *testing.T) {
	tests := []struct {
		level string
		ok    bool
	}{
		{"info", true},
		{"trace", true},
		{"INGS=debug", true},
		{"INGS=debug,CRTX=trace", true},
		{"verbose", false},
		{"INGS", false},
		{"NOPE=debug", false},
		{"INGS=loud", false},
		{"INGS=debug=x", false},
	}
	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			err := parseAndSetDebugLevels(tc.level)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
	setLogLevels(defaultLogLevel)
}
