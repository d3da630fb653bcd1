package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"passkeyd/internal/common"
	"passkeyd/internal/dbx"
	"passkeyd/internal/server/models"
	"passkeyd/internal/server/repositories/challenges"
	"passkeyd/internal/server/repositories/credentials"
	"passkeyd/internal/server/repositories/sessions"
	"passkeyd/internal/server/repositories/users"
)

// In-memory repository fakes. The service under test never touches SQL
// directly, so these stand in for the Postgres implementations.

type fakeUsers struct {
	byName map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byName: map[string]*models.User{}}
}

func (f *fakeUsers) FindOrCreate(_ context.Context, username string) (*models.User, error) {
	if u, ok := f.byName[username]; ok {
		return u, nil
	}
	u := &models.User{ID: uuid.NewString(), UserName: username, CreatedAt: time.Now()}
	f.byName[username] = u
	return u, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if u, ok := f.byName[username]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range f.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeCredentials struct {
	byCredID map[string]*models.Credential
}

func newFakeCredentials() *fakeCredentials {
	return &fakeCredentials{byCredID: map[string]*models.Credential{}}
}

func (f *fakeCredentials) Create(_ context.Context, c *models.Credential) (*models.Credential, error) {
	if _, ok := f.byCredID[c.CredentialID]; ok {
		return nil, common.ErrorDuplicateCredential
	}
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	f.byCredID[c.CredentialID] = c
	return c, nil
}

func (f *fakeCredentials) GetByCredentialID(_ context.Context, credentialID string) (*models.Credential, error) {
	if c, ok := f.byCredID[credentialID]; ok {
		return c, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeCredentials) ListByUser(_ context.Context, userID string) ([]*models.Credential, error) {
	var result []*models.Credential
	for _, c := range f.byCredID {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (f *fakeCredentials) UpdateCounter(_ context.Context, credentialID string, counter uint32) error {
	c, ok := f.byCredID[credentialID]
	if !ok || c.Counter >= counter {
		return common.ErrorCounterRegression
	}
	c.Counter = counter
	return nil
}

type fakeChallenges struct {
	rows []*models.Challenge
}

func newFakeChallenges() *fakeChallenges {
	return &fakeChallenges{}
}

func (f *fakeChallenges) Issue(_ context.Context, ch *models.Challenge) (*models.Challenge, error) {
	ch.ID = uuid.NewString()
	ch.CreatedAt = time.Now()
	f.rows = append(f.rows, ch)
	return ch, nil
}

func (f *fakeChallenges) ConsumeLatestValid(_ context.Context, userID, kind string, now time.Time) (*models.Challenge, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		ch := f.rows[i]
		if ch.UserID == userID && ch.Kind == kind && !ch.Consumed && ch.ExpiresAt.After(now) {
			ch.Consumed = true
			return ch, nil
		}
	}
	return nil, common.ErrorNoValidChallenge
}

func (f *fakeChallenges) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var kept []*models.Challenge
	var n int64
	for _, ch := range f.rows {
		if ch.Consumed || !ch.ExpiresAt.After(now) {
			n++
			continue
		}
		kept = append(kept, ch)
	}
	f.rows = kept
	return n, nil
}

type fakeSessions struct {
	byHash map[string]*models.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byHash: map[string]*models.Session{}}
}

func (f *fakeSessions) Create(_ context.Context, userID string, tokenHash []byte, validity time.Duration) error {
	f.byHash[hex.EncodeToString(tokenHash)] = &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: bytes.Clone(tokenHash),
		ExpiresAt: time.Now().Add(validity),
		CreatedAt: time.Now(),
	}
	return nil
}

func (f *fakeSessions) Find(_ context.Context, tokenHash []byte, now time.Time) (*models.Session, error) {
	s, ok := f.byHash[hex.EncodeToString(tokenHash)]
	if !ok || !s.ExpiresAt.After(now) {
		return nil, common.ErrorNotFound
	}
	return s, nil
}

func (f *fakeSessions) Delete(_ context.Context, tokenHash []byte) error {
	delete(f.byHash, hex.EncodeToString(tokenHash))
	return nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, s := range f.byHash {
		if !s.ExpiresAt.After(now) {
			delete(f.byHash, k)
			n++
		}
	}
	return n, nil
}

type fakeManager struct {
	users *fakeUsers
	creds *fakeCredentials
	chals *fakeChallenges
	sess  *fakeSessions
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		users: newFakeUsers(),
		creds: newFakeCredentials(),
		chals: newFakeChallenges(),
		sess:  newFakeSessions(),
	}
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeManager) Users(dbx.DBTX) users.Repository                    { return m.users }
func (m *fakeManager) Credentials(dbx.DBTX) credentials.Repository        { return m.creds }
func (m *fakeManager) Challenges(dbx.DBTX) challenges.Repository          { return m.chals }
func (m *fakeManager) Sessions(dbx.DBTX) sessions.Repository              { return m.sess }
