package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"

	"shieldwallet/internal/zerocash"
)

const (
	defaultConfigFilename = "shieldctl.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "shieldctl.log"
	defaultParamsDirname  = "params"
)

var (
	defaultHomeDir    = btcutil.AppDataDir("shieldctl", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
	defaultParamsDir  = filepath.Join(defaultHomeDir, defaultParamsDirname)
)

type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	TestNet    bool   `long:"testnet" description:"Use the test network"`
	ParamsDir  string `long:"paramsdir" description:"Directory holding the circuit proving and verifying keys"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	Metrics    bool   `long:"metrics" description:"Print command metrics to standard error on exit"`
	In         string `short:"i" long:"in" description:"Read the JSON request from this file instead of standard input"`

	params *zerocash.NetworkParams
}

// Each command reads one JSON request and writes one JSON response.
var commands = []struct {
	name, short, long string
}{
	{"ingest", "Scan a transaction", "Trial-decrypt a transaction, append its commitments to the tree and report owned notes and spent nullifiers."},
	{"unspent", "Filter spent notes", "Drop the notes whose nullifier appears in the given set."},
	{"create", "Build a payment", "Select notes, prove and sign a transaction paying an address."},
	{"keygen", "Generate a spending key", "Print a fresh spending key and its default payment address."},
	{"advance", "Advance a witness", "Append later commitments to a note witness."},
}

func newConfigParser(cfg *config, options flags.Options) (*flags.Parser, error) {
	parser := flags.NewParser(cfg, options)
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, &struct{}{}); err != nil {
			return nil, err
		}
	}
	return parser, nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical":
		return true
	}
	return false
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !validLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid", debugLevel)
		}
		setLogLevels(debugLevel)
		return nil
	}

	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		fields := strings.Split(logLevelPair, "=")
		if len(fields) != 2 {
			return fmt.Errorf("the specified debug level contains an "+
				"invalid subsystem/level pair [%v]", logLevelPair)
		}
		subsysID, logLevel := fields[0], fields[1]

		if _, exists := subsystemLoggers[subsysID]; !exists {
			return fmt.Errorf("the specified subsystem [%v] is invalid -- "+
				"supported subsytems %v", subsysID, supportedSubsystems())
		}
		if !validLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid", logLevel)
		}
		setLogLevel(subsysID, logLevel)
	}
	return nil
}

// validate checks the parsed options and fills in derived settings.
func (cfg *config) validate() error {
	cfg.params = zerocash.MainNetParams
	if cfg.TestNet {
		cfg.params = zerocash.TestNetParams
	}
	if cfg.ParamsDir == "" {
		return errors.New("paramsdir must not be empty")
	}
	if cfg.LogDir == "" {
		return errors.New("logdir must not be empty")
	}
	cfg.ParamsDir = cleanAndExpandPath(cfg.ParamsDir)

	// Append the network type to the log directory so it is "namespaced"
	// per network.
	cfg.LogDir = filepath.Join(cleanAndExpandPath(cfg.LogDir), cfg.params.Name)
	if cfg.In != "" {
		cfg.In = cleanAndExpandPath(cfg.In)
	}
	return nil
}

// loadConfig initializes and parses the config using a config file and
// command line options, then starts logging. It returns the parsed config
// and the name of the requested command.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func loadConfig(args []string) (*config, string, error) {
	// Step 1: Defaults
	cfg := config{
		ConfigFile: defaultConfigFile,
		ParamsDir:  defaultParamsDir,
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
	}

	// Step 2: Pre-parse for an alternative config file
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag|flags.PassDoubleDash|flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, "", err
	}

	// Step 3: Config file
	parser, err := newConfigParser(&cfg, flags.Default)
	if err != nil {
		return nil, "", err
	}
	var configFileError error
	err = flags.NewIniParser(parser).ParseFile(cleanAndExpandPath(preCfg.ConfigFile))
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, "", fmt.Errorf("loadConfig: %w", err)
		}
		configFileError = err
	}

	// Step 4: Command line options take precedence
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, "", err
	}
	if parser.Active == nil {
		return nil, "", errors.New("loadConfig: no command given")
	}
	if err := cfg.validate(); err != nil {
		return nil, "", fmt.Errorf("loadConfig: %w", err)
	}

	// Initialize logging at the default logging level, then apply the
	// requested levels.
	if err := initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename)); err != nil {
		return nil, "", err
	}
	setLogLevels(defaultLogLevel)
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, "", fmt.Errorf("loadConfig: %w", err)
	}

	// Warn about a missing config file after the final command line parse
	// succeeds.
	if configFileError != nil && preCfg.ConfigFile != defaultConfigFile {
		log.Warnf("%v", configFileError)
	}
	return &cfg, parser.Active.Name, nil
}
