package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrHasherClosed is returned once the hasher pool has been shut down.
var ErrHasherClosed = errors.New("password hasher closed")

// PasswordHasher hashes and verifies passwords with bcrypt on a fixed pool of
// worker goroutines, so bursts of logins queue instead of saturating every CPU.
type PasswordHasher struct {
	cost  int
	jobs  chan func()
	quit  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
	dummy []byte
}

// NewPasswordHasher starts workers goroutines hashing at the given bcrypt cost.
func NewPasswordHasher(cost, workers int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, bcrypt.InvalidCostError(cost)
	}
	if workers <= 0 {
		workers = 1
	}

	// Compared against when the identity is unknown so both login failure
	// paths spend one bcrypt comparison.
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cost)
	if err != nil {
		return nil, err
	}

	h := &PasswordHasher{
		cost:  cost,
		jobs:  make(chan func()),
		quit:  make(chan struct{}),
		dummy: dummy,
	}
	for i := 0; i < workers; i++ {
		h.wg.Add(1)
		go h.work()
	}
	return h, nil
}

func (h *PasswordHasher) work() {
	defer h.wg.Done()
	for {
		select {
		case job := <-h.jobs:
			job()
		case <-h.quit:
			return
		}
	}
}

// Close stops the workers. Queued callers receive ErrHasherClosed.
func (h *PasswordHasher) Close() {
	h.once.Do(func() {
		close(h.quit)
		h.wg.Wait()
	})
}

// Hash returns a salted bcrypt hash of plain.
func (h *PasswordHasher) Hash(ctx context.Context, plain string) (string, error) {
	var (
		hashed []byte
		err    error
	)
	if runErr := h.run(ctx, func() {
		hashed, err = bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	}); runErr != nil {
		return "", runErr
	}
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plain matches hashed. A mismatch is not an error;
// a malformed stored hash is.
func (h *PasswordHasher) Verify(ctx context.Context, plain, hashed string) (bool, error) {
	var err error
	if runErr := h.run(ctx, func() {
		err = bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	}); runErr != nil {
		return false, runErr
	}
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

// VerifyDummy burns one comparison against a throwaway hash. It always
// reports a mismatch.
func (h *PasswordHasher) VerifyDummy(ctx context.Context, plain string) {
	_, _ = h.Verify(ctx, plain, string(h.dummy))
}

// Cost returns the configured bcrypt work factor.
func (h *PasswordHasher) Cost() int {
	return h.cost
}

func (h *PasswordHasher) run(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	job := func() {
		defer close(done)
		fn()
	}

	select {
	case h.jobs <- job:
	case <-h.quit:
		return ErrHasherClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
