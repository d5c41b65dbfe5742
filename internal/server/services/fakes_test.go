package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
)

var errBoom = errors.New("boom")

// --- clock ---

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// --- refresh token store ---

// memRefreshStore keeps committed records in a map. Units of work buffer
// their writes and apply them at commit, failing with ErrConflict when a
// record they deleted is already gone, the way a conditional delete does.
type memRefreshStore struct {
	mu   sync.Mutex
	recs map[tokens.Fingerprint]models.RefreshToken

	findErr error
	saveErr error
	delErr  error
}

func newMemRefreshStore() *memRefreshStore {
	return &memRefreshStore{recs: map[tokens.Fingerprint]models.RefreshToken{}}
}

func (s *memRefreshStore) Repository() refreshtokens.Repository {
	return &memRefreshRepo{s: s}
}

func (s *memRefreshStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo refreshtokens.Repository) error) error {
	tx := &memRefreshTx{
		s:       s,
		deletes: map[tokens.Fingerprint]bool{},
		saves:   map[tokens.Fingerprint]models.RefreshToken{},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for fp := range tx.deletes {
		if _, ok := s.recs[fp]; !ok {
			return refreshtokens.ErrConflict
		}
	}
	for fp := range tx.saves {
		if _, ok := s.recs[fp]; ok && !tx.deletes[fp] {
			return fmt.Errorf("duplicate fingerprint")
		}
	}
	for fp := range tx.deletes {
		delete(s.recs, fp)
	}
	for fp, rec := range tx.saves {
		s.recs[fp] = rec
	}
	return nil
}

func (s *memRefreshStore) get(fp tokens.Fingerprint) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	rec, ok := s.recs[fp]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rec, nil
}

func (s *memRefreshStore) put(rec models.RefreshToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.Fingerprint] = rec
}

func (s *memRefreshStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

type memRefreshRepo struct {
	s *memRefreshStore
}

func (r *memRefreshRepo) Save(ctx context.Context, rec *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.saveErr != nil {
		return r.s.saveErr
	}
	if _, ok := r.s.recs[rec.Fingerprint]; ok {
		return fmt.Errorf("duplicate fingerprint")
	}
	r.s.recs[rec.Fingerprint] = *rec
	return nil
}

func (r *memRefreshRepo) FindByFingerprint(ctx context.Context, fp tokens.Fingerprint) (*models.RefreshToken, error) {
	return r.s.get(fp)
}

func (r *memRefreshRepo) DeleteByFingerprint(ctx context.Context, fp tokens.Fingerprint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.delErr != nil {
		return false, r.s.delErr
	}
	_, ok := r.s.recs[fp]
	delete(r.s.recs, fp)
	return ok, nil
}

type memRefreshTx struct {
	s       *memRefreshStore
	deletes map[tokens.Fingerprint]bool
	saves   map[tokens.Fingerprint]models.RefreshToken
}

func (t *memRefreshTx) Save(ctx context.Context, rec *models.RefreshToken) error {
	t.s.mu.Lock()
	err := t.s.saveErr
	t.s.mu.Unlock()
	if err != nil {
		return err
	}
	t.saves[rec.Fingerprint] = *rec
	return nil
}

func (t *memRefreshTx) FindByFingerprint(ctx context.Context, fp tokens.Fingerprint) (*models.RefreshToken, error) {
	if rec, ok := t.saves[fp]; ok {
		return &rec, nil
	}
	if t.deletes[fp] {
		return nil, common.ErrorNotFound
	}
	return t.s.get(fp)
}

func (t *memRefreshTx) DeleteByFingerprint(ctx context.Context, fp tokens.Fingerprint) (bool, error) {
	t.s.mu.Lock()
	err := t.s.delErr
	t.s.mu.Unlock()
	if err != nil {
		return false, err
	}
	if t.deletes[fp] {
		return false, nil
	}
	if _, err := t.s.get(fp); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	t.deletes[fp] = true
	return true, nil
}

// --- users ---

type memUsers struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	roles  map[models.Role]bool
	nextID int

	findErr   error
	createErr error
	roleErr   error
}

func newMemUsers(list ...*models.User) *memUsers {
	m := &memUsers{byID: map[string]*models.User{}, roles: map[models.Role]bool{}}
	for _, u := range list {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) Repository() users.Repository { return m }

func (m *memUsers) WithinTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error {
	return fn(ctx, m)
}

func (m *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	for _, existing := range m.byID {
		if strings.EqualFold(existing.UserName, u.UserName) {
			return nil, common.ErrUserAlreadyExists
		}
	}
	m.nextID++
	cp := *u
	cp.ID = fmt.Sprintf("u%d", m.nextID)
	cp.Roles = append([]models.Role(nil), u.Roles...)
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	out.Roles = append([]models.Role(nil), u.Roles...)
	return &out, nil
}

func (m *memUsers) FindByUsername(ctx context.Context, name string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.byID {
		if u.UserName == name {
			out := *u
			out.Roles = append([]models.Role(nil), u.Roles...)
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) AssignRole(ctx context.Context, userID string, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return common.ErrorNotFound
	}
	if !u.HasRole(role) {
		u.Roles = append(u.Roles, role)
		sort.Slice(u.Roles, func(i, j int) bool { return u.Roles[i] < u.Roles[j] })
	}
	return nil
}

func (m *memUsers) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memUsers) EnsureRole(ctx context.Context, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roleErr != nil {
		return m.roleErr
	}
	m.roles[role] = true
	return nil
}

func (m *memUsers) setActive(id string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].IsActive = active
}

// --- password hasher ---

type fakeHasher struct {
	err error
}

func (h fakeHasher) Hash(p string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + p, nil
}

func (h fakeHasher) Verify(p, hash string) bool {
	return hash == "hashed:"+p
}

// --- fixtures ---

func alice() *models.User {
	return &models.User{ID: "1", UserName: "alice", PasswordHash: "hashed:wonderland", IsActive: true, Roles: []models.Role{models.RoleUser}}
}
