package identity_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-repository-bun"
)

// TestIdentity is a plain value implementation of identity.Identity
type TestIdentity struct {
	id       string
	username string
	email    string
	roles    []identity.RoleRef
}

func (t TestIdentity) ID() string                { return t.id }
func (t TestIdentity) Username() string          { return t.username }
func (t TestIdentity) Email() string             { return t.email }
func (t TestIdentity) Roles() []identity.RoleRef { return t.roles }

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// testConfig implements identity.Config
type testConfig struct {
	signingKey      string
	signingMethod   string
	contextKey      string
	tokenExpiration int
	tokenLookup     string
	authScheme      string
	issuer          string
	audience        []string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:      "test-signing-key",
		signingMethod:   "HS256",
		contextKey:      "user",
		tokenExpiration: 24,
		tokenLookup:     "header:Authorization",
		authScheme:      "Bearer",
		issuer:          "test-issuer",
		audience:        []string{"test-audience"},
	}
}

func (c *testConfig) GetSigningKey() string    { return c.signingKey }
func (c *testConfig) GetSigningMethod() string { return c.signingMethod }
func (c *testConfig) GetContextKey() string    { return c.contextKey }
func (c *testConfig) GetTokenExpiration() int  { return c.tokenExpiration }
func (c *testConfig) GetTokenLookup() string   { return c.tokenLookup }
func (c *testConfig) GetAuthScheme() string    { return c.authScheme }
func (c *testConfig) GetIssuer() string        { return c.issuer }
func (c *testConfig) GetAudience() []string    { return c.audience }

// MockIdentityProvider implements identity.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (identity.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(identity.Identity), args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (identity.Identity, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(identity.Identity), args.Error(1)
}

// MockUsers mocks the identity.Users store. The embedded interface
// covers methods a test never reaches.
type MockUsers struct {
	mock.Mock
	identity.Users
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*identity.User, error) {
	args := m.Called(ctx, tx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUsers) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string, criteria ...repository.SelectCriteria) (*identity.User, error) {
	args := m.Called(ctx, tx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*identity.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *identity.User, criteria ...repository.InsertCriteria) (*identity.User, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUsers) StorePinStateTx(ctx context.Context, tx bun.IDB, user *identity.User) error {
	args := m.Called(ctx, tx, user)
	return args.Error(0)
}

func (m *MockUsers) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) AssignRoleTx(ctx context.Context, tx bun.IDB, userID, roleID uuid.UUID) error {
	args := m.Called(ctx, tx, userID, roleID)
	return args.Error(0)
}

func (m *MockUsers) RemoveRoleTx(ctx context.Context, tx bun.IDB, userID, roleID uuid.UUID) error {
	args := m.Called(ctx, tx, userID, roleID)
	return args.Error(0)
}

func (m *MockUsers) ListAll(ctx context.Context, criteria ...repository.SelectCriteria) ([]*identity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.User), args.Error(1)
}

// MockRoles mocks the identity.Roles store
type MockRoles struct {
	mock.Mock
	identity.Roles
}

func (m *MockRoles) GetOrCreateByNameTx(ctx context.Context, tx bun.IDB, name string) (*identity.Role, error) {
	args := m.Called(ctx, tx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Role), args.Error(1)
}

func (m *MockRoles) ListAll(ctx context.Context) ([]*identity.Role, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.Role), args.Error(1)
}

// MockRepositoryManager implements identity.RepositoryManager. RunInTx
// invokes the given function with a zero transaction so handler logic
// runs against the mocked stores.
type MockRepositoryManager struct {
	mock.Mock
	users *MockUsers
	roles *MockRoles
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		users: &MockUsers{},
		roles: &MockRoles{},
	}
}

func (m *MockRepositoryManager) Validate() error { return nil }

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	var tx bun.Tx
	return f(ctx, tx)
}

func (m *MockRepositoryManager) Users() identity.Users { return m.users }

func (m *MockRepositoryManager) Roles() identity.Roles { return m.roles }

// MockActivitySink records activity events for assertions
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event identity.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// capturingSink collects every event it sees
type capturingSink struct {
	mu     sync.Mutex
	events []identity.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt identity.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) Events() []identity.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]identity.ActivityEvent, len(c.events))
	copy(out, c.events)
	return out
}

// capturingSender collects outbound notifications
type capturingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

type sentMessage struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

func (c *capturingSender) Send(to, subject, htmlBody, textBody string) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{To: to, Subject: subject, HTMLBody: htmlBody, TextBody: textBody})
	return nil
}

func (c *capturingSender) Sent() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sentMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

// fixedClock returns a controllable time source
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(t time.Time) *fixedClock {
	return &fixedClock{now: t}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
