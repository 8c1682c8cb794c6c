// prover.go - Groth16 proving for spend and output descriptions.
//
// Circuits are compiled and their keys set up lazily, once per LocalProver.
// When a params directory is configured, keys are loaded from it and
// written back after a fresh setup.

package zerocash

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"golang.org/x/sync/errgroup"
)

// ErrProofInvalid is returned when a proof does not verify.
var ErrProofInvalid = errors.New("proof verification failed")

// Prover produces the zero-knowledge proofs of a transaction.
type Prover interface {
	ProveSpend(w *SpendWitness) ([]byte, error)
	ProveOutput(w *OutputWitness) ([]byte, error)
}

// SpendWitness is everything a spend proof attests to.
type SpendWitness struct {
	Note      *Note
	Path      *MerklePath
	Nk        NullifierKey
	Anchor    Node
	Nullifier Nullifier
	Rk        [RkSize]byte
}

func (w *SpendWitness) assignment() *SpendCircuit {
	tag := w.Note.Recipient.Tag()
	rk := elementFromBytes(w.Rk[:])
	c := &SpendCircuit{
		Anchor:    w.Anchor.BigInt(),
		Nullifier: w.Nullifier.BigInt(),
		Rk:        nodeFromElement(&rk).BigInt(),
		Value:     w.Note.Value,
		Tag:       nodeFromElement(&tag).BigInt(),
		Rho:       w.Note.Rho.BigInt(),
		Rcm:       w.Note.Rcm.BigInt(),
		Nk:        nodeFromElement(&w.Nk.nk).BigInt(),
		Position:  w.Path.Position,
	}
	for i, n := range w.Path.AuthPath {
		c.AuthPath[i] = n.BigInt()
	}
	return c
}

// OutputWitness is everything an output proof attests to.
type OutputWitness struct {
	Note *Note
}

func (w *OutputWitness) assignment() *OutputCircuit {
	tag := w.Note.Recipient.Tag()
	return &OutputCircuit{
		Cmu:   w.Note.Commitment().BigInt(),
		Value: w.Note.Value,
		Tag:   nodeFromElement(&tag).BigInt(),
		Rho:   w.Note.Rho.BigInt(),
		Rcm:   w.Note.Rcm.BigInt(),
	}
}

type circuitKeys struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// LocalProver proves with Groth16 over BN254 in process. The zero value is
// not usable; create one with NewLocalProver. A LocalProver is safe for
// concurrent use.
type LocalProver struct {
	paramsDir string

	once   sync.Once
	err    error
	spend  circuitKeys
	output circuitKeys
}

// NewLocalProver returns a prover that keeps its keys in paramsDir. An
// empty paramsDir keeps keys in memory only.
func NewLocalProver(paramsDir string) *LocalProver {
	return &LocalProver{paramsDir: paramsDir}
}

func (p *LocalProver) init() error {
	p.once.Do(func() {
		start := time.Now()
		var g errgroup.Group
		g.Go(func() error {
			keys, err := p.setup("spend", &SpendCircuit{})
			p.spend = keys
			return err
		})
		g.Go(func() error {
			keys, err := p.setup("output", &OutputCircuit{})
			p.output = keys
			return err
		})
		p.err = g.Wait()
		if p.err == nil {
			log.Infof("Proving parameters ready in %v", time.Since(start))
		}
	})
	return p.err
}

func (p *LocalProver) setup(name string, circuit frontend.Circuit) (circuitKeys, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return circuitKeys{}, fmt.Errorf("%s circuit compilation failed: %w", name, err)
	}
	log.Debugf("Compiled %s circuit: %d constraints", name, ccs.GetNbConstraints())

	var pk groth16.ProvingKey
	var vk groth16.VerifyingKey
	if p.paramsDir == "" {
		pk, vk, err = groth16.Setup(ccs)
	} else {
		if err := os.MkdirAll(p.paramsDir, 0700); err != nil {
			return circuitKeys{}, err
		}
		pk, vk, err = SetupOrLoadKeys(ccs,
			filepath.Join(p.paramsDir, name+"_proving.key"),
			filepath.Join(p.paramsDir, name+"_verifying.key"))
	}
	if err != nil {
		return circuitKeys{}, fmt.Errorf("%s setup failed: %w", name, err)
	}
	return circuitKeys{ccs: ccs, pk: pk, vk: vk}, nil
}

// ProveSpend implements Prover.
func (p *LocalProver) ProveSpend(w *SpendWitness) ([]byte, error) {
	if err := p.init(); err != nil {
		return nil, err
	}
	return prove(&p.spend, w.assignment())
}

// ProveOutput implements Prover.
func (p *LocalProver) ProveOutput(w *OutputWitness) ([]byte, error) {
	if err := p.init(); err != nil {
		return nil, err
	}
	return prove(&p.output, w.assignment())
}

// VerifySpend checks the proof of a spend description.
func (p *LocalProver) VerifySpend(sd *SpendDescription) error {
	if err := p.init(); err != nil {
		return err
	}
	rk := elementFromBytes(sd.Rk[:])
	public := &SpendCircuit{
		Anchor:    sd.Anchor.BigInt(),
		Nullifier: sd.Nullifier.BigInt(),
		Rk:        nodeFromElement(&rk).BigInt(),
	}
	return verify(&p.spend, public, sd.Proof)
}

// VerifyOutput checks the proof of an output description.
func (p *LocalProver) VerifyOutput(od *OutputDescription) error {
	if err := p.init(); err != nil {
		return err
	}
	return verify(&p.output, &OutputCircuit{Cmu: od.Cmu.BigInt()}, od.Proof)
}

func prove(keys *circuitKeys, assignment frontend.Circuit) ([]byte, error) {
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("witness creation failed: %w", err)
	}
	proof, err := groth16.Prove(keys.ccs, keys.pk, w)
	if err != nil {
		return nil, fmt.Errorf("proof generation failed: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("proof marshaling failed: %w", err)
	}
	return buf.Bytes(), nil
}

func verify(keys *circuitKeys, public frontend.Circuit, proofBytes []byte) error {
	w, err := frontend.NewWitness(public, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("public witness creation failed: %w", err)
	}
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("proof unmarshaling failed: %w", err)
	}
	if err := groth16.Verify(proof, keys.vk, w); err != nil {
		return fmt.Errorf("%w: %v", ErrProofInvalid, err)
	}
	return nil
}

// SaveProvingKey saves a Groth16 proving key to disk.
func SaveProvingKey(path string, pk groth16.ProvingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = pk.WriteTo(f)
	return err
}

// SaveVerifyingKey saves a Groth16 verifying key to disk.
func SaveVerifyingKey(path string, vk groth16.VerifyingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = vk.WriteTo(f)
	return err
}

// LoadProvingKey loads a Groth16 proving key from disk.
func LoadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	_, err = pk.ReadFrom(f)
	return pk, err
}

// LoadVerifyingKey loads a Groth16 verifying key from disk.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	_, err = vk.ReadFrom(f)
	return vk, err
}

// SetupOrLoadKeys generates or loads Groth16 keys for the circuit.
// If keys exist on disk, loads them; otherwise, generates and saves new keys.
func SetupOrLoadKeys(ccs constraint.ConstraintSystem, pkPath, vkPath string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk, pkErr := LoadProvingKey(pkPath)
	vk, vkErr := LoadVerifyingKey(vkPath)
	if pkErr == nil && vkErr == nil {
		log.Debugf("Loaded keys from %s", filepath.Dir(pkPath))
		return pk, vk, nil
	}
	// Generate keys
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, err
	}
	if err := SaveProvingKey(pkPath, pk); err != nil {
		return nil, nil, err
	}
	if err := SaveVerifyingKey(vkPath, vk); err != nil {
		return nil, nil, err
	}
	return pk, vk, nil
}
