package auth_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/EmpoweredVote/EV-Auth/internal/auth"
	"github.com/EmpoweredVote/EV-Auth/internal/blob"
	"github.com/EmpoweredVote/EV-Auth/internal/tokens"
	"github.com/EmpoweredVote/EV-Auth/internal/users"
	"github.com/google/uuid"
)

// memStore is a users.Store kept in memory. Records are copied on the way in
// and out so callers cannot mutate stored state without calling Save.
type memStore struct {
	mu      sync.Mutex
	byID    map[string]users.User
	saveErr error
	findErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[string]users.User)}
}

func clone(u users.User) users.User {
	if u.RefreshToken != nil {
		tok := *u.RefreshToken
		u.RefreshToken = &tok
	}
	return u
}

func (m *memStore) FindByID(_ context.Context, id string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	c := clone(u)
	return &c, nil
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	email = users.NormalizeEmail(email)
	for _, u := range m.byID {
		if u.Email == email {
			c := clone(u)
			return &c, nil
		}
	}
	return nil, users.ErrNotFound
}

func (m *memStore) Create(_ context.Context, u *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = users.NormalizeEmail(u.Email)
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return users.ErrEmailTaken
		}
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = users.RoleUser
	}
	m.byID[u.ID] = clone(*u)
	return nil
}

func (m *memStore) Save(_ context.Context, u *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if !u.Role.Valid() {
		return users.ErrInvalidRole
	}
	m.saves++
	m.byID[u.ID] = clone(*u)
	return nil
}

func (m *memStore) List(_ context.Context) ([]users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]users.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *memStore) ListByRole(ctx context.Context, role users.Role) ([]users.User, error) {
	all, _ := m.List(ctx)
	out := all[:0]
	for _, u := range all {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

// stored returns the persisted record, bypassing the service.
func (m *memStore) stored(t *testing.T, id string) users.User {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		t.Fatalf("user %s not in store", id)
	}
	return clone(u)
}

// racyStore reports the first email lookup as a miss, as if a concurrent
// request created the account between the lookup and Create.
type racyStore struct {
	*memStore
	missed bool
}

func (s *racyStore) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	if !s.missed {
		s.missed = true
		return nil, users.ErrNotFound
	}
	return s.memStore.FindByEmail(ctx, email)
}

// fakeBlobs records uploads and destroys.
type fakeBlobs struct {
	mu         sync.Mutex
	uploaded   []string
	destroyed  []string
	uploadErr  error
	destroyErr error
}

func (f *fakeBlobs) Upload(_ context.Context, data string, opts blob.UploadOptions) (blob.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return blob.Asset{}, f.uploadErr
	}
	id := opts.Folder + "/" + uuid.New().String()[:8]
	f.uploaded = append(f.uploaded, data)
	return blob.Asset{ID: id, URL: "https://img.example/" + id}, nil
}

func (f *fakeBlobs) Destroy(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyErr != nil {
		return f.destroyErr
	}
	f.destroyed = append(f.destroyed, id)
	return nil
}

var errStoreDown = errors.New("connection reset by peer")

func newTokenManager(t *testing.T) *tokens.Manager {
	t.Helper()
	tm, err := tokens.NewManager(tokens.Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return tm
}

type fixture struct {
	svc    *auth.Service
	store  *memStore
	blobs  *fakeBlobs
	tokens *tokens.Manager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := newMemStore()
	blobs := &fakeBlobs{}
	tm := newTokenManager(t)
	return fixture{
		svc:    auth.NewService(store, tm, blobs),
		store:  store,
		blobs:  blobs,
		tokens: tm,
	}
}
