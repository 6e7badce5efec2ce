package reset

import (
	"context"
	"sync"
	"time"

	"github.com/oarkflow/streamguard/pkg/errs"
	"github.com/oarkflow/streamguard/pkg/models"
	"github.com/oarkflow/streamguard/pkg/ratelimit"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemoryUsers(users ...models.User) *memoryUsers {
	m := &memoryUsers{users: make(map[string]models.User)}
	for _, u := range users {
		m.users[u.Email] = u
	}
	return m
}

func (m *memoryUsers) UserExists(email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[email]
	return ok, nil
}

func (m *memoryUsers) GetUserByEmail(email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return models.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (m *memoryUsers) UpdatePassword(userID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, u := range m.users {
		if u.UserID == userID {
			u.Password = passwordHash
			m.users[email] = u
			return nil
		}
	}
	return errs.ErrNotFound
}

type memoryTokens struct {
	mu     sync.Mutex
	tokens map[string]models.ResetToken
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{tokens: make(map[string]models.ResetToken)}
}

func (m *memoryTokens) SaveResetToken(token models.ResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.TokenHash+"|"+token.Email] = token
	return nil
}

func (m *memoryTokens) GetResetToken(tokenHash, email string) (models.ResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenHash+"|"+email]
	if !ok {
		return models.ResetToken{}, errs.ErrNotFound
	}
	return t, nil
}

func (m *memoryTokens) DeleteResetTokens(email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.tokens {
		if t.Email == email {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *memoryTokens) DeleteExpiredResetTokens(before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, t := range m.tokens {
		if t.CreatedAt < before.Unix() {
			delete(m.tokens, k)
			n++
		}
	}
	return n, nil
}

func (m *memoryTokens) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

type recordingNotifier struct {
	mu     sync.Mutex
	tokens map[string]string
	err    error
}

func (n *recordingNotifier) SendPasswordResetEmail(_ context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	if n.tokens == nil {
		n.tokens = make(map[string]string)
	}
	n.tokens[email] = token
	return nil
}

func (n *recordingNotifier) token(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens[email]
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (s *recordingSink) LogInjectionAttempt(event models.SecurityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// stubService records calls and answers with fixed results.
type stubService struct {
	mu          sync.Mutex
	sendCalls   int
	resetCalls  int
	sendResult  models.ResetResult
	resetResult models.ResetResult
	status      models.AttemptStatus
	err         error
}

func (s *stubService) SendResetEmail(context.Context, string, string) (models.ResetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendCalls++
	return s.sendResult, s.err
}

func (s *stubService) ResetPassword(context.Context, string, string, string, string) (models.ResetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetCalls++
	return s.resetResult, s.err
}

func (s *stubService) GetRemainingAttempts(context.Context, string, string) (models.AttemptStatus, error) {
	return s.status, nil
}

type fakeBreaches struct {
	mu       sync.Mutex
	breached map[string]bool
	err      error
	checked  []string
}

func (f *fakeBreaches) Breached(_ context.Context, password string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, password)
	if f.err != nil {
		return false, f.err
	}
	return f.breached[password], nil
}

type delayRecorder struct {
	mu    sync.Mutex
	calls int
}

func (d *delayRecorder) Delay(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return nil
}

func (d *delayRecorder) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type harness struct {
	clock    *fakeClock
	store    *ratelimit.MemoryStore
	limiter  *ratelimit.Limiter
	users    *memoryUsers
	tokens   *memoryTokens
	notifier *recordingNotifier
	sink     *recordingSink
	delay    *delayRecorder
	service  *Service
	workflow *Workflow
}

func newHarness(users ...models.User) *harness {
	h := &harness{
		clock:    newFakeClock(),
		users:    newMemoryUsers(users...),
		tokens:   newMemoryTokens(),
		notifier: &recordingNotifier{},
		sink:     &recordingSink{},
		delay:    &delayRecorder{},
	}
	h.store = ratelimit.NewMemoryStore(ratelimit.WithClock(h.clock.Now))
	h.limiter = ratelimit.New(h.store)
	h.service = NewService(h.users, h.tokens, h.notifier, h.limiter, WithClock(h.clock))
	h.workflow = NewWorkflow(h.limiter, h.service, h.users,
		WithDelay(h.delay.Delay),
		WithAuditSink(h.sink),
	)
	return h
}

func (h *harness) attempts(scope, identity string) int {
	n, _ := h.store.Attempts(context.Background(), ratelimit.NewKey(scope, identity).String())
	return n
}
