package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"shieldwallet/internal/transactions/create"
	"shieldwallet/internal/transactions/ingest"
	"shieldwallet/internal/transactions/unspent"
	"shieldwallet/internal/zerocash"
)

// logWriter implements an io.Writer that outputs to both standard error and
// the write-end pipe of an initialized log rotator. Standard output carries
// the JSON responses and is never written to.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stderr.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

// Loggers per subsystem. A single backend logger is created and all subsystem
// loggers created from it write to the backend. When adding new subsystems,
// add the subsystem logger variable here and to the subsystemLoggers map.
var (
	backendLog = btclog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs. It is nil until
	// initLogRotator is called.
	logRotator *rotator.Rotator

	log     = backendLog.Logger("SCTL")
	zcshLog = backendLog.Logger("ZCSH")
	ingsLog = backendLog.Logger("INGS")
	unspLog = backendLog.Logger("UNSP")
	crtxLog = backendLog.Logger("CRTX")
)

// Initialize package-global logger variables.
func init() {
	zerocash.UseLogger(zcshLog)
	ingest.UseLogger(ingsLog)
	unspent.UseLogger(unspLog)
	create.UseLogger(crtxLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"SCTL": log,
	"ZCSH": zcshLog,
	"INGS": ingsLog,
	"UNSP": unspLog,
	"CRTX": crtxLog,
}

// initLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory. It must be called before the
// package-global log rotater variables are used.
func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	closeLogRotator()
	logRotator = r
	return nil
}

func closeLogRotator() {
	if logRotator != nil {
		logRotator.Close()
		logRotator = nil
	}
}

// setLogLevel sets the logging level for provided subsystem. Invalid
// subsystems are ignored and invalid levels fall back to info.
func setLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.
func setLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}
