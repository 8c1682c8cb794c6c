// Package create assembles, proves and signs outgoing transactions.
package create

import (
	"fmt"
	"math"
	"strings"

	"shieldwallet/internal/transactions"
	"shieldwallet/internal/transactions/codec"
	"shieldwallet/internal/zerocash"
)

// Fee is the fee every transaction pays, whatever its size.
const Fee uint64 = 2365000

// Request describes a payment.
type Request struct {
	// Notes are the spend candidates, used in this order.
	Notes []transactions.NoteWitness `json:"notes"`

	// Key is the bech32 spending key owning Notes.
	Key string `json:"key"`

	// To is a shielded or transparent destination address.
	To string `json:"to"`

	// Change is the shielded address receiving the change output.
	Change string `json:"change"`

	Amount uint64 `json:"amount"`
	Height uint32 `json:"height"`
}

// Result is a built transaction.
type Result struct {
	TxID       string   `json:"txid"`
	TxHex      string   `json:"txhex"`
	Nullifiers []string `json:"nullifiers"`
}

// CreateTransaction pays req.Amount to req.To from the first prefix of
// req.Notes that covers the amount plus Fee.
// Steps:
//  1. Start a builder for the network at req.Height
//  2. Add spends in caller order until they cover amount plus fee
//  3. Fail with ErrInsufficientBalance when the candidates run out first
//  4. Add the payment output and a shielded change output, even for zero
//     change
//  5. Prove and sign with a fixed fee rule
//  6. Encode the transaction
//
// The reported nullifiers are derived with the internal nullifier key.
func CreateTransaction(req *Request, params *zerocash.NetworkParams, prover zerocash.Prover) (*Result, error) {
	// Step 1: Builder and key
	builder := zerocash.NewBuilder(params, req.Height)
	sk, err := codec.DecodeSpendingKey(req.Key, params)
	if err != nil {
		return nil, err
	}
	nk := sk.FullViewingKey().NullifierKey(zerocash.ScopeInternal)

	if req.Amount > math.MaxUint64-Fee {
		return nil, transactions.NewError(transactions.ErrInsufficientBalance,
			fmt.Sprintf("amount %d out of range", req.Amount), nil)
	}
	target := req.Amount + Fee

	// Step 2: Note selection
	var total uint64
	nullifiers := make([]string, 0, len(req.Notes))
	for i, nw := range req.Notes {
		if nw.Note == nil {
			return nil, transactions.NewError(transactions.ErrDecode,
				fmt.Sprintf("note %d missing", i), nil)
		}
		w, err := codec.DecodeWitness(nw.Witness)
		if err != nil {
			return nil, err
		}
		path, err := w.Path()
		if err != nil {
			return nil, transactions.NewError(transactions.ErrMissingPath,
				fmt.Sprintf("note %d", i), err)
		}
		if leaf, err := w.Leaf(); err != nil || leaf != nw.Note.Commitment() {
			return nil, transactions.NewError(transactions.ErrMissingPath,
				fmt.Sprintf("note %d: witness does not cover its commitment", i), err)
		}
		if err := builder.AddSpend(sk, nw.Note, path); err != nil {
			return nil, transactions.NewError(transactions.ErrProving,
				fmt.Sprintf("add spend %d", i), err)
		}
		nf := nk.Nullifier(nw.Note, path.Position)
		nullifiers = append(nullifiers, codec.EncodeNullifier(nf))

		if nw.Note.Value > math.MaxUint64-total {
			return nil, transactions.NewError(transactions.ErrDecode,
				"note values overflow", nil)
		}
		total += nw.Note.Value
		if total >= target {
			break
		}
	}

	// Step 3: Balance check
	if total < target {
		return nil, transactions.NewError(transactions.ErrInsufficientBalance,
			fmt.Sprintf("have %d, need %d (amount %d + fee %d)", total, target, req.Amount, Fee), nil)
	}
	change := total - target
	log.Debugf("Selected %d of %d notes, total %d, change %d",
		len(nullifiers), len(req.Notes), total, change)

	// Step 4: Outputs
	if err := addDestination(builder, params, req.To, req.Amount); err != nil {
		return nil, err
	}
	changeAddr, err := zerocash.DecodePaymentAddress(params, req.Change)
	if err != nil {
		return nil, transactions.NewError(transactions.ErrBadAddress, "change address", err)
	}
	if err := builder.AddOutput(changeAddr, change); err != nil {
		return nil, transactions.NewError(transactions.ErrProving, "change output", err)
	}

	// Step 5: Prove and sign
	tx, err := builder.Build(prover, zerocash.FixedFeeRule{Fee: Fee})
	if err != nil {
		return nil, transactions.NewError(transactions.ErrProving, "build transaction", err)
	}

	// Step 6: Encode
	txHex, err := codec.EncodeTransaction(tx)
	if err != nil {
		return nil, err
	}
	txid, err := tx.TxID()
	if err != nil {
		return nil, err
	}
	log.Infof("Created transaction %v paying %d to %s", txid, req.Amount, req.To)
	return &Result{TxID: txid.String(), TxHex: txHex, Nullifiers: nullifiers}, nil
}

// addDestination adds the payment output. Strings carrying the network's
// shielded address prefix are shielded addresses; anything else must be a
// transparent address.
func addDestination(builder *zerocash.Builder, params *zerocash.NetworkParams, to string, amount uint64) error {
	if strings.HasPrefix(to, params.HRPSaplingPaymentAddress+"1") {
		addr, err := zerocash.DecodePaymentAddress(params, to)
		if err != nil {
			return transactions.NewError(transactions.ErrBadAddress, "destination", err)
		}
		if err := builder.AddOutput(addr, amount); err != nil {
			return transactions.NewError(transactions.ErrProving, "payment output", err)
		}
		return nil
	}

	addr, err := zerocash.DecodeTransparentAddress(params, to)
	if err != nil {
		return transactions.NewError(transactions.ErrBadAddress, "destination", err)
	}
	if err := builder.AddTransparentOutput(addr, amount); err != nil {
		return transactions.NewError(transactions.ErrProving, "payment output", err)
	}
	return nil
}
