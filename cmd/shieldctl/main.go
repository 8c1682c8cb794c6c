// shieldctl is a command line front end to the shielded wallet operations.
// Every command reads a JSON request from standard input, or from the file
// named by --in, and writes a JSON response to standard output. Logs go to
// standard error and a rotating log file.
//
// Usage:
//
//	shieldctl [options] ingest|unspent|create|keygen|advance
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	flags "github.com/jessevdk/go-flags"

	"shieldwallet/internal/transactions"
	"shieldwallet/internal/transactions/codec"
	"shieldwallet/internal/transactions/create"
	"shieldwallet/internal/transactions/ingest"
	"shieldwallet/internal/transactions/unspent"
	"shieldwallet/internal/zerocash"
)

type ingestRequest struct {
	// Tree is the commitment tree before the transaction. Empty means the
	// empty tree.
	Tree string `json:"tree"`
	Tx   string `json:"tx"`
	Key  string `json:"key"`
}

type unspentRequest struct {
	Notes      []transactions.NoteWitness `json:"notes"`
	Nullifiers []string                   `json:"nullifiers"`
	Key        string                     `json:"key"`
}

type unspentResponse struct {
	Notes []transactions.NoteWitness `json:"notes"`
}

type keygenResponse struct {
	Key     string `json:"key"`
	Address string `json:"address"`
}

type advanceRequest struct {
	Witness     string   `json:"witness"`
	Commitments []string `json:"commitments"`
}

type advanceResponse struct {
	Witness string `json:"witness"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newProver returns the prover used by the create command.
var newProver = func(cfg *config) zerocash.Prover {
	return zerocash.NewLocalProver(cfg.ParamsDir)
}

type commandFunc func(cfg *config, in io.Reader, m *MetricsCollector) (interface{}, error)

var commandHandlers = map[string]commandFunc{
	"ingest":  runIngest,
	"unspent": runUnspent,
	"create":  runCreate,
	"keygen":  runKeygen,
	"advance": runAdvance,
}

func main() {
	if err := shieldctlMain(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// shieldctlMain parses the configuration, runs one command and writes its
// response. A failed command writes an error response instead.
func shieldctlMain(args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, command, err := loadConfig(args)
	if err != nil {
		return err
	}
	defer closeLogRotator()

	metrics := NewMetricsCollector()
	start := time.Now()
	resp, err := runCommand(cfg, command, stdin, metrics)
	metrics.RecordCommand(command, time.Since(start), err)

	if cfg.Metrics {
		if err := metrics.WriteSummary(os.Stderr); err != nil {
			log.Warnf("Unable to write metrics: %v", err)
		}
	}

	if err != nil {
		log.Errorf("%s failed: %v", command, err)
		var errResp errorResponse
		errResp.Error.Code = errorCode(err)
		errResp.Error.Message = err.Error()
		if werr := writeJSON(stdout, &errResp); werr != nil {
			log.Errorf("Unable to write response: %v", werr)
		}
		return err
	}
	return writeJSON(stdout, resp)
}

func runCommand(cfg *config, command string, stdin io.Reader, m *MetricsCollector) (interface{}, error) {
	handler, ok := commandHandlers[command]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", command)
	}
	in := stdin
	if cfg.In != "" {
		f, err := os.Open(cfg.In)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}
	log.Debugf("Running %s on %v", command, cfg.params)
	return handler(cfg, in, m)
}

// errorCode names the kind of err for responses and metrics.
func errorCode(err error) string {
	var e transactions.Error
	if errors.As(err, &e) {
		return e.ErrorCode.String()
	}
	return "ErrInternal"
}

func readRequest(in io.Reader, v interface{}) error {
	if err := json.NewDecoder(in).Decode(v); err != nil {
		return transactions.NewError(transactions.ErrDecode, "malformed request", err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runIngest(cfg *config, in io.Reader, m *MetricsCollector) (interface{}, error) {
	var req ingestRequest
	if err := readRequest(in, &req); err != nil {
		return nil, err
	}
	if req.Tree == "" {
		empty, err := codec.EncodeTree(zerocash.NewCommitmentTree())
		if err != nil {
			return nil, err
		}
		req.Tree = empty
	}
	res, err := ingest.Ingest(req.Tree, req.Tx, req.Key, cfg.params)
	if err != nil {
		return nil, err
	}
	m.RecordNotes(MetricNotesFound, len(res.Notes))
	m.RecordNotes(MetricNullifiers, len(res.Nullifiers))
	m.SetGauge(MetricTreeSize, float64(res.Size), nil)
	return res, nil
}

func runUnspent(cfg *config, in io.Reader, m *MetricsCollector) (interface{}, error) {
	var req unspentRequest
	if err := readRequest(in, &req); err != nil {
		return nil, err
	}
	notes, err := unspent.FilterUnspent(req.Notes, req.Nullifiers, req.Key, cfg.params)
	if err != nil {
		return nil, err
	}
	m.RecordNotes(MetricNotesUnspent, len(notes))
	return &unspentResponse{Notes: notes}, nil
}

func runCreate(cfg *config, in io.Reader, m *MetricsCollector) (interface{}, error) {
	var req create.Request
	if err := readRequest(in, &req); err != nil {
		return nil, err
	}
	res, err := create.CreateTransaction(&req, cfg.params, newProver(cfg))
	if err != nil {
		return nil, err
	}
	m.RecordNotes(MetricNullifiers, len(res.Nullifiers))
	return res, nil
}

func runKeygen(cfg *config, _ io.Reader, _ *MetricsCollector) (interface{}, error) {
	sk, err := zerocash.NewSpendingKey()
	if err != nil {
		return nil, err
	}
	key, err := zerocash.EncodeSpendingKey(cfg.params, sk)
	if err != nil {
		return nil, err
	}
	addr, err := sk.FullViewingKey().DefaultAddress()
	if err != nil {
		return nil, err
	}
	encoded, err := zerocash.EncodePaymentAddress(cfg.params, addr)
	if err != nil {
		return nil, err
	}
	return &keygenResponse{Key: key, Address: encoded}, nil
}

func runAdvance(_ *config, in io.Reader, _ *MetricsCollector) (interface{}, error) {
	var req advanceRequest
	if err := readRequest(in, &req); err != nil {
		return nil, err
	}
	w, err := ingest.AdvanceWitness(req.Witness, req.Commitments)
	if err != nil {
		return nil, err
	}
	return &advanceResponse{Witness: w}, nil
}
