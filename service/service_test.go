package service

import (
	"bitwise74/campus-finder/model"
	"bitwise74/campus-finder/security"
	"bitwise74/campus-finder/store"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sentMail struct {
	to, code, link string
}

type fakeMailer struct {
	mu   sync.Mutex
	fail bool
	sent []sentMail
}

func (m *fakeMailer) SendVerification(_ context.Context, to, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, sentMail{to: to, code: code})
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, _, code, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, sentMail{to: to, code: code, link: link})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type testEnv struct {
	store  *store.GormStore
	creds  *Credentials
	verif  *Verification
	mailer *fakeMailer
	clock  *clock
}

func fastArgon() *security.ArgonHash {
	a := security.New()
	a.Memory = 8 * 1024
	a.Iterations = 1
	return a
}

func newTestStore(t *testing.T) *store.GormStore {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Item{}))

	s := store.NewGormStore(db)
	t.Cleanup(func() { s.Close(context.Background()) })

	return s
}

func newTestEnv(t *testing.T, attempts AttemptLimiter) *testEnv {
	t.Helper()

	s := newTestStore(t)
	c := &clock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	m := &fakeMailer{}
	creds := NewCredentials(s, fastArgon())

	return &testEnv{
		store:  s,
		creds:  creds,
		mailer: m,
		clock:  c,
		verif:  NewVerification(creds, m, attempts, WithNow(c.now), WithResetURL("https://finder.test/reset-password")),
	}
}

func (e *testEnv) register(t *testing.T, name, email string) *RegisterResult {
	t.Helper()

	res, err := e.verif.Register(context.Background(), RegisterInput{
		Name:          name,
		Email:         email,
		Password:      "Secr3tPass",
		ContactNumber: "03001234567",
	})
	require.NoError(t, err)

	return res
}
