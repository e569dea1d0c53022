package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	accountdomain "github.com/AlibekovAA/margarine/internal/account/domain"
	accountrepo "github.com/AlibekovAA/margarine/internal/account/repository"
	"github.com/AlibekovAA/margarine/internal/common/clock"
	"github.com/AlibekovAA/margarine/internal/common/db"
	"github.com/AlibekovAA/margarine/internal/common/logger"
	tokenstore "github.com/AlibekovAA/margarine/internal/verification/store"
)

// memoryAccounts enforces the username uniqueness constraint like the real stores.
type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]accountdomain.Account

	insertFunc           func(ctx context.Context, account accountdomain.Account) error
	findByUsernameFunc   func(ctx context.Context, username string) error
	upsertFunc           func(ctx context.Context, username string) error
	deleteByCreationFunc func(ctx context.Context, username, creationID string) error
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{accounts: make(map[string]accountdomain.Account)}
}

func (m *memoryAccounts) Insert(ctx context.Context, account accountdomain.Account) error {
	if m.insertFunc != nil {
		if err := m.insertFunc(ctx, account); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.Username]; ok {
		return accountrepo.ErrAccountAlreadyExists
	}
	m.accounts[account.Username] = account
	return nil
}

func (m *memoryAccounts) FindByUsername(ctx context.Context, username string) (accountdomain.Account, error) {
	if m.findByUsernameFunc != nil {
		if err := m.findByUsernameFunc(ctx, username); err != nil {
			return accountdomain.Account{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[username]
	if !ok {
		return accountdomain.Account{}, accountrepo.ErrAccountNotFound
	}
	return account, nil
}

func (m *memoryAccounts) UpsertPasswordHash(ctx context.Context, username, hash string, at time.Time) error {
	if m.upsertFunc != nil {
		if err := m.upsertFunc(ctx, username); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[username]
	if !ok {
		account = accountdomain.Account{Username: username, CreatedAt: at}
	}
	account.PasswordHash = hash
	account.UpdatedAt = at
	m.accounts[username] = account
	return nil
}

func (m *memoryAccounts) DeleteByUsername(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, username)
	return nil
}

func (m *memoryAccounts) DeleteByCreation(ctx context.Context, username, creationID string) (bool, error) {
	if m.deleteByCreationFunc != nil {
		if err := m.deleteByCreationFunc(ctx, username, creationID); err != nil {
			return false, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[username]
	if !ok || account.CreationID != creationID {
		return false, nil
	}
	delete(m.accounts, username)
	return true, nil
}

func (m *memoryAccounts) Ping(context.Context) error {
	return nil
}

func (m *memoryAccounts) get(username string) (accountdomain.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[username]
	return account, ok
}

func (m *memoryAccounts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

type sentVerification struct {
	address string
	token   string
}

type mockNotifier struct {
	mu       sync.Mutex
	sendFunc func(ctx context.Context, address, token string) error
	sent     []sentVerification
}

func (m *mockNotifier) SendVerification(ctx context.Context, address, token string) error {
	m.mu.Lock()
	m.sent = append(m.sent, sentVerification{address: address, token: token})
	m.mu.Unlock()
	if m.sendFunc != nil {
		return m.sendFunc(ctx, address, token)
	}
	return nil
}

func (m *mockNotifier) calls() []sentVerification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentVerification(nil), m.sent...)
}

// failingTokens wraps a real store and lets a test fail individual calls.
type failingTokens struct {
	tokenstore.TokenStore
	setFunc func(ctx context.Context, token, username string, ttl time.Duration) error
	getFunc func(ctx context.Context, token string) error
}

func (f *failingTokens) Set(ctx context.Context, token, username string, ttl time.Duration) error {
	if f.setFunc != nil {
		if err := f.setFunc(ctx, token, username, ttl); err != nil {
			return err
		}
	}
	return f.TokenStore.Set(ctx, token, username, ttl)
}

func (f *failingTokens) Get(ctx context.Context, token string) (string, error) {
	if f.getFunc != nil {
		if err := f.getFunc(ctx, token); err != nil {
			return "", err
		}
	}
	return f.TokenStore.Get(ctx, token)
}

type mockHasher struct {
	hashFunc func(password string) (string, error)
}

func (m *mockHasher) Hash(password string) (string, error) {
	if m.hashFunc != nil {
		return m.hashFunc(password)
	}
	return "hashed:" + password, nil
}

func (m *mockHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type sequenceIDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func (g *sequenceIDGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%d", g.prefix, g.next), nil
}

type testEnv struct {
	workflow *Workflow
	accounts *memoryAccounts
	store    *tokenstore.MemoryStore
	tokens   *failingTokens
	notifier *mockNotifier
	hasher   *mockHasher
	clock    *clock.MockClock
}

const testTokenTTL = 6 * time.Hour

func testWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		TokenTTL:                testTokenTTL,
		CircuitBreakerThreshold: 100,
		CircuitBreakerTimeout:   time.Second,
		CircuitBreakerReset:     time.Minute,
		CompensationRetry: db.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1,
		},
	}
}

func setupWorkflow(t *testing.T) *testEnv {
	t.Helper()
	return setupWorkflowWithConfig(t, testWorkflowConfig())
}

func setupWorkflowWithConfig(t *testing.T, config WorkflowConfig) *testEnv {
	t.Helper()
	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	memStore := tokenstore.NewMemoryStore(mockClock)
	env := &testEnv{
		accounts: newMemoryAccounts(),
		store:    memStore,
		tokens:   &failingTokens{TokenStore: memStore},
		notifier: &mockNotifier{},
		hasher:   &mockHasher{},
		clock:    mockClock,
	}

	env.workflow = NewWorkflow(
		WorkflowDeps{
			Accounts:    env.accounts,
			Tokens:      env.tokens,
			Notifier:    env.notifier,
			Hasher:      env.hasher,
			IDGenerator: &sequenceIDGenerator{prefix: "tok"},
			Clock:       mockClock,
			Log:         logger.NewWithWriter(io.Discard, "test", "debug"),
		},
		config,
	)
	return env
}
