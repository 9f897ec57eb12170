package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	tokenKey = "token"
	userKey  = "user"

	roleStaff = "staff"
	roleAdmin = "admin"
)

var (
	// ErrAuthenticatorUnavailable is returned when Login/Register is attempted without a collaborator.
	ErrAuthenticatorUnavailable = errors.New("session: authenticator not configured")
	// ErrInvalidGrant is returned when the collaborator responds without a token.
	ErrInvalidGrant = errors.New("session: authenticator returned an empty token")
)

// EventKind names the auth-state change delivered to observers.
type EventKind string

const (
	EventLogin    EventKind = "login"
	EventRegister EventKind = "register"
	EventLogout   EventKind = "logout"
)

// Event describes an authentication-state change.
type Event struct {
	Kind       EventKind
	User       *Profile
	OccurredAt time.Time
}

// Observer is notified after every successful login, registration and logout.
type Observer interface {
	OnAuthChange(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event Event)

// OnAuthChange implements Observer.
func (f ObserverFunc) OnAuthChange(ctx context.Context, event Event) {
	if f != nil {
		f(ctx, event)
	}
}

// Profile is the persisted user profile of the signed-in account.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Credentials are the login inputs: identifier is an email or phone number.
type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Registration carries a new account's details.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// Grant is what the external auth service returns on success.
type Grant struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

// Authenticator is the external service issuing tokens.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (Grant, error)
	Register(ctx context.Context, reg Registration) (Grant, error)
}

// Storage persists token and profile between runs.
type Storage interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// Option customises a Session.
type Option func(*Session)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for event timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

type subscription struct {
	id       int
	observer Observer
}

// Session owns the client's authentication state and broadcasts changes to subscribers.
type Session struct {
	mu      sync.RWMutex
	token   string
	user    *Profile
	auth    Authenticator
	storage Storage

	subMu  sync.Mutex
	subs   []subscription
	nextID int

	clock  func() time.Time
	logger *zap.Logger
}

// New constructs a signed-out Session. Call Restore to reload persisted credentials.
func New(auth Authenticator, storage Storage, opts ...Option) *Session {
	s := &Session{
		auth:    auth,
		storage: storage,
		clock:   time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Subscribe registers observer and returns a function removing it.
func (s *Session) Subscribe(observer Observer) (unsubscribe func()) {
	if observer == nil {
		return func() {}
	}
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, observer: observer})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Restore loads token and profile from storage. A corrupt profile is dropped together with its token.
func (s *Session) Restore(_ context.Context) {
	if s.storage == nil {
		return
	}
	token, hasToken, err := s.storage.Get(tokenKey)
	if err != nil {
		s.logger.Warn("session token load failed", zap.Error(err))
		return
	}
	rawUser, hasUser, err := s.storage.Get(userKey)
	if err != nil {
		s.logger.Warn("session profile load failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user = "", nil
	if !hasToken || strings.TrimSpace(string(token)) == "" {
		return
	}
	var profile Profile
	if hasUser {
		if err := json.Unmarshal(rawUser, &profile); err != nil {
			s.logger.Warn("discarding corrupt session profile", zap.Error(err))
			s.forgetLocked()
			return
		}
	}
	s.token = strings.TrimSpace(string(token))
	s.user = &profile
}

// Login authenticates through the collaborator and notifies observers on success.
func (s *Session) Login(ctx context.Context, creds Credentials) (Profile, error) {
	if s.auth == nil {
		return Profile{}, ErrAuthenticatorUnavailable
	}
	grant, err := s.auth.Login(ctx, creds)
	if err != nil {
		return Profile{}, err
	}
	return s.establish(ctx, grant, EventLogin)
}

// Register creates an account through the collaborator and signs it in.
func (s *Session) Register(ctx context.Context, reg Registration) (Profile, error) {
	if s.auth == nil {
		return Profile{}, ErrAuthenticatorUnavailable
	}
	grant, err := s.auth.Register(ctx, reg)
	if err != nil {
		return Profile{}, err
	}
	return s.establish(ctx, grant, EventRegister)
}

// Logout forgets the credentials and notifies observers.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	s.token, s.user = "", nil
	s.forgetLocked()
	s.mu.Unlock()

	s.notify(ctx, Event{Kind: EventLogout, OccurredAt: s.clock().UTC()})
}

// Token returns the bearer token, empty when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// BearerToken satisfies token sources that can fail; the session never does.
func (s *Session) BearerToken(context.Context) (string, error) {
	return s.Token(), nil
}

// User returns a copy of the signed-in profile.
func (s *Session) User() (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return Profile{}, false
	}
	return *s.user, true
}

// IsAuthenticated reports whether a token is held.
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// IsStaff reports whether the profile carries a staff or admin role.
func (s *Session) IsStaff() bool {
	profile, ok := s.User()
	if !ok {
		return false
	}
	role := strings.ToLower(strings.TrimSpace(profile.Role))
	return role == roleStaff || role == roleAdmin
}

func (s *Session) establish(ctx context.Context, grant Grant, kind EventKind) (Profile, error) {
	token := strings.TrimSpace(grant.Token)
	if token == "" {
		return Profile{}, ErrInvalidGrant
	}
	profile := grant.User

	s.mu.Lock()
	s.token = token
	s.user = &profile
	s.persistLocked()
	s.mu.Unlock()

	eventUser := profile
	s.notify(ctx, Event{Kind: kind, User: &eventUser, OccurredAt: s.clock().UTC()})
	return profile, nil
}

func (s *Session) notify(ctx context.Context, event Event) {
	s.subMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.observer.OnAuthChange(ctx, event)
	}
}

func (s *Session) persistLocked() {
	if s.storage == nil {
		return
	}
	if err := s.storage.Put(tokenKey, []byte(s.token)); err != nil {
		s.logger.Warn("session token persist failed", zap.Error(err))
	}
	payload, err := json.Marshal(s.user)
	if err != nil {
		s.logger.Warn("session profile encode failed", zap.Error(err))
		return
	}
	if err := s.storage.Put(userKey, payload); err != nil {
		s.logger.Warn("session profile persist failed", zap.Error(err))
	}
}

func (s *Session) forgetLocked() {
	if s.storage == nil {
		return
	}
	for _, key := range []string{tokenKey, userKey} {
		if err := s.storage.Delete(key); err != nil {
			s.logger.Warn("session forget failed", zap.String("key", key), zap.Error(err))
		}
	}
}
