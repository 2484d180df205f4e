package service

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"lms.com/internal/auth"
	"lms.com/internal/config"
	"lms.com/internal/domain"
	"lms.com/internal/infra"
	"lms.com/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	client, err := infra.NewDatabaseClient(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := client.DB.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return client.DB
}

type recordedEvent struct {
	Type string
	Data interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Data: data})
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeStorage struct {
	keys []string
	body []byte
}

func (s *fakeStorage) Upload(_ context.Context, prefix, filename string, body io.Reader, _ string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	s.body = buf.Bytes()
	key := prefix + filename
	s.keys = append(s.keys, key)
	return key, nil
}

type fakeTokenStore struct {
	revoked map[string]time.Duration
}

func (s *fakeTokenStore) Revoke(_ context.Context, id string, ttl time.Duration) error {
	if s.revoked == nil {
		s.revoked = map[string]time.Duration{}
	}
	s.revoked[id] = ttl
	return nil
}

func (s *fakeTokenStore) IsRevoked(_ context.Context, id string) (bool, error) {
	_, ok := s.revoked[id]
	return ok, nil
}

// fixture wires every service against one in-memory database.
type fixture struct {
	db        *gorm.DB
	publisher *fakePublisher
	tokens    *fakeTokenStore
	storage   *fakeStorage

	accounts  *AccountServiceImpl
	requests  *RequestServiceImpl
	inventory *InventoryServiceImpl
	catalog   *CatalogServiceImpl
	search    *SearchServiceImpl
	profiles  *ProfileServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:        db,
		publisher: &fakePublisher{},
		tokens:    &fakeTokenStore{},
		storage:   &fakeStorage{},
	}
	f.accounts = NewAccountService(db, auth.NewTokenManager("test-secret", time.Hour), f.tokens, f.publisher)
	f.accounts.hashCost = bcrypt.MinCost
	f.requests = NewRequestService(db, f.publisher)
	f.inventory = NewInventoryService(db, f.publisher)
	f.catalog = NewCatalogService(db)
	f.search = NewSearchService(db)
	f.profiles = NewProfileService(db, f.storage)
	return f
}

func (f *fixture) student(t *testing.T, username, studentNo string) domain.Actor {
	t.Helper()
	sess, err := f.accounts.RegisterStudent(context.Background(), domain.StudentRegistration{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "password123",
		Password2: "password123",
		StudentNo: studentNo,
		Grade:     "10",
	})
	require.NoError(t, err)
	return domain.Actor{UserID: sess.User.ID, Role: model.RoleStudent}
}

func (f *fixture) admin(t *testing.T, username string) domain.Actor {
	t.Helper()
	sess, err := f.accounts.RegisterAdmin(context.Background(), domain.AdminRegistration{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "password123",
		Password2: "password123",
		StaffRole: "Librarian",
	})
	require.NoError(t, err)
	return domain.Actor{UserID: sess.User.ID, Role: model.RoleAdmin}
}

func (f *fixture) category(t *testing.T, admin domain.Actor, name string) *model.Category {
	t.Helper()
	c, err := f.catalog.CreateCategory(context.Background(), admin, name)
	require.NoError(t, err)
	return c
}

func (f *fixture) book(t *testing.T, admin domain.Actor, categoryID uint, title, author string, copies int) *model.Book {
	t.Helper()
	b, err := f.inventory.CreateBook(context.Background(), admin, domain.NewBook{
		Title:           title,
		Author:          author,
		CategoryID:      categoryID,
		AvailableCopies: copies,
	})
	require.NoError(t, err)
	return b
}
