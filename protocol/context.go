package protocol

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/flashbots/privstats/crypto"
	"go.uber.org/atomic"
)

var (
	backendMu    sync.Mutex
	backendReady bool

	// checkBackend is replaced in tests to simulate a broken backend.
	checkBackend = validateFieldBackend
)

// Context is the process-wide cryptographic context. It must be acquired
// with Init before any protocol operation and closed once every Config,
// session and store created under it is no longer used.
//
//	ctx, err := protocol.Init()
//	if err != nil {
//		return err
//	}
//	defer ctx.Close()
type Context struct {
	open atomic.Bool
}

// Init validates the field backend and returns an open context. Validation
// runs once per process; a failure is not cached, so a later Init retries.
func Init() (*Context, error) {
	backendMu.Lock()
	defer backendMu.Unlock()

	if !backendReady {
		if err := checkBackend(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
		}
		backendReady = true
	}

	ctx := &Context{}
	ctx.open.Store(true)
	return ctx, nil
}

// Close releases the context. Configs created from it stop working.
// Closing twice is a no-op.
func (c *Context) Close() error {
	c.open.Store(false)
	return nil
}

// IsOpen reports whether the context has not been closed.
func (c *Context) IsOpen() bool {
	return c != nil && c.open.Load()
}

func (c *Context) check() error {
	if !c.IsOpen() {
		return ErrContextClosed
	}
	return nil
}

func validateFieldBackend() error {
	if !crypto.FieldOrder.ProbablyPrime(20) {
		return fmt.Errorf("field modulus %x is not prime", crypto.FieldOrder)
	}

	one := big.NewInt(1)
	order := new(big.Int).Lsh(one, crypto.FieldGeneratorLog)
	if crypto.FieldExp(crypto.FieldGenerator, order, crypto.FieldOrder).Cmp(one) != 0 {
		return fmt.Errorf("generator order does not divide 2^%d", crypto.FieldGeneratorLog)
	}
	half := new(big.Int).Rsh(order, 1)
	if crypto.FieldExp(crypto.FieldGenerator, half, crypto.FieldOrder).Cmp(one) == 0 {
		return fmt.Errorf("generator order is less than 2^%d", crypto.FieldGeneratorLog)
	}

	// p - 1 must be divisible by the subgroup order for the roots to exist.
	pm1 := new(big.Int).Sub(crypto.FieldOrder, one)
	if new(big.Int).Mod(pm1, order).Sign() != 0 {
		return fmt.Errorf("2^%d does not divide p-1", crypto.FieldGeneratorLog)
	}
	return nil
}
