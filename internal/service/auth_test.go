package service

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgcrypto "github.com/and161185/secure-api/internal/crypto"
	"github.com/and161185/secure-api/internal/errs"
	"github.com/and161185/secure-api/internal/limiter"
	"github.com/and161185/secure-api/internal/model"
	"github.com/and161185/secure-api/internal/repository"
	"github.com/and161185/secure-api/internal/token"
	"github.com/gofrs/uuid/v5"
)

type fakeUsers struct {
	byEmail map[string]*model.User

	createErr error
	getErr    error
	updateErr error

	adminExists bool
	existsErr   error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byEmail == nil {
		f.byEmail = map[string]*model.User{}
	}
	for _, e := range f.byEmail {
		if e.Email == u.Email || e.Username == u.Username {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *u
	f.byEmail[u.Email] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byEmail {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) Update(_ context.Context, id uuid.UUID, upd model.UserUpdate) (*model.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for _, u := range f.byEmail {
		if u.ID != id {
			continue
		}
		if upd.Username != nil {
			u.Username = *upd.Username
		}
		if upd.Email != nil {
			u.Email = *upd.Email
		}
		if upd.PasswordHash != nil {
			u.PasswordHash = *upd.PasswordHash
		}
		if upd.Role != nil {
			u.Role = *upd.Role
		}
		c := *u
		return &c, nil
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) ExistsWithRole(_ context.Context, role model.Role) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if role == model.RoleAdmin && f.adminExists {
		return true, nil
	}
	for _, u := range f.byEmail {
		if u.Role == role {
			return true, nil
		}
	}
	return false, nil
}

type fakeTokens struct {
	rows map[string]*model.RefreshToken

	createErr error
	getErr    error
	deleteErr error
}

var _ repository.RefreshTokenRepository = (*fakeTokens)(nil)

func (f *fakeTokens) Create(_ context.Context, t *model.RefreshToken) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.rows == nil {
		f.rows = map[string]*model.RefreshToken{}
	}
	if _, exists := f.rows[t.Token]; exists {
		return errs.ErrDuplicateToken
	}
	cpy := *t
	f.rows[t.Token] = &cpy
	return nil
}

func (f *fakeTokens) GetByToken(_ context.Context, tok string) (*model.RefreshToken, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	t, ok := f.rows[tok]
	if !ok || !t.ExpiresAt.After(time.Now()) {
		return nil, errs.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeTokens) Delete(_ context.Context, tok string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.rows, tok)
	return nil
}

func (f *fakeTokens) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	for k, t := range f.rows {
		if t.UserID == userID {
			delete(f.rows, k)
		}
	}
	return nil
}

func (f *fakeTokens) DeleteExpired(_ context.Context) (int64, error) {
	var n int64
	for k, t := range f.rows {
		if !t.ExpiresAt.After(time.Now()) {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return nil
}

func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

func newTestAuth(users *fakeUsers, tokens *fakeTokens, lim *fakeLimiter) *AuthServiceImpl {
	codec := token.New([]byte("acc"), []byte("ref"), 15*time.Minute, 7*24*time.Hour)
	return NewAuthService(users, tokens, codec, 4, lim)
}

func seedUser(t *testing.T, users *fakeUsers, email, password string) *model.User {
	t.Helper()
	hash, err := pkgcrypto.HashPassword(password, 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &model.User{
		ID:           uuid.Must(uuid.NewV4()),
		Username:     "alice",
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return u
}

func TestAuth_Register_Basics(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{byEmail: map[string]*model.User{}}
	s := newTestAuth(users, &fakeTokens{}, &fakeLimiter{})
	ctx := context.Background()

	if _, err := s.Register(ctx, "", "", "", model.RoleUser); err == nil {
		t.Fatalf("want validation error on empty fields")
	}
	if _, err := s.Register(ctx, "alice", "alice@x.com", "Passw0rd1", model.Role("root")); err == nil {
		t.Fatalf("want error on unknown role")
	}

	u, err := s.Register(ctx, "alice", "alice@x.com", "Passw0rd1", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Role != model.RoleUser {
		t.Fatalf("role=%q, want user", u.Role)
	}
	if u.PasswordHash == "" || u.PasswordHash == "Passw0rd1" {
		t.Fatalf("plaintext stored as hash")
	}
	if !pkgcrypto.VerifyPassword(u.PasswordHash, "Passw0rd1") {
		t.Fatalf("stored hash does not verify")
	}

	if _, err := s.Register(ctx, "alice2", "alice@x.com", "Passw0rd1", ""); !errors.Is(err, errs.ErrEmailTaken) {
		t.Fatalf("want ErrEmailTaken, got %v", err)
	}
	if _, err := s.Register(ctx, "alice", "other@x.com", "Passw0rd1", ""); !errors.Is(err, errs.ErrUsernameTaken) {
		t.Fatalf("want ErrUsernameTaken, got %v", err)
	}
}

func TestAuth_LoginWithIP_RateLimiterAndCreds(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{byEmail: map[string]*model.User{}}
	u := seedUser(t, users, "alice@x.com", "correct")
	tokens := &fakeTokens{}
	lim := &fakeLimiter{allowOK: true}
	s := newTestAuth(users, tokens, lim)
	ctx := context.Background()

	lim.allowErr = errors.New("lim-err")
	if _, _, err := s.LoginWithIP(ctx, "alice@x.com", "correct", "1.2.3.4"); err == nil {
		t.Fatalf("want limiter error propagate")
	}
	lim.allowErr = nil

	lim.allowOK = false
	if _, _, err := s.LoginWithIP(ctx, "alice@x.com", "correct", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	lim.allowOK = true

	// missing user and wrong password are status-identical
	if _, _, err := s.LoginWithIP(ctx, "nobody@x.com", "x", ""); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials on missing user, got %v", err)
	}
	if _, _, err := s.LoginWithIP(ctx, "alice@x.com", "wrong", ""); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials on wrong password, got %v", err)
	}

	lim.failBlocked = true
	if _, _, err := s.LoginWithIP(ctx, "alice@x.com", "wrong", ""); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited on blocked after failure, got %v", err)
	}
	lim.failBlocked = false

	tok, gotUser, err := s.LoginWithIP(ctx, "alice@x.com", "correct", "127.0.0.1")
	if err != nil {
		t.Fatalf("LoginWithIP success: %v", err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", tok)
	}
	if tok.AccessToken == tok.RefreshToken {
		t.Fatalf("access and refresh tokens should differ")
	}
	if gotUser.ID != u.ID {
		t.Fatalf("bad user returned: %+v", gotUser)
	}
	if lim.successCalls == 0 {
		t.Fatalf("expected Success() to be called")
	}

	// the refresh token is persisted with its embedded expiry
	rec, ok := tokens.rows[tok.RefreshToken]
	if !ok {
		t.Fatalf("refresh token not persisted")
	}
	if rec.UserID != u.ID {
		t.Fatalf("ledger row owner=%s, want=%s", rec.UserID, u.ID)
	}
	if until := time.Until(rec.ExpiresAt); until < 6*24*time.Hour || until > 8*24*time.Hour {
		t.Fatalf("ledger expiry %v not near 7d", until)
	}
}

func TestAuth_Refresh_RepeatableUntilRevoked(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{byEmail: map[string]*model.User{}}
	seedUser(t, users, "alice@x.com", "correct")
	tokens := &fakeTokens{}
	s := newTestAuth(users, tokens, &fakeLimiter{allowOK: true})
	ctx := context.Background()

	pair, _, err := s.LoginWithIP(ctx, "alice@x.com", "correct", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// refresh is repeatable: no rotation, the ledger row survives
	first, err := s.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh 1: %v", err)
	}
	if first.AccessToken == "" {
		t.Fatalf("empty access token")
	}
	if first.RefreshToken != "" {
		t.Fatalf("refresh must not rotate the refresh token")
	}
	if _, err := s.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh 2: %v", err)
	}
	if _, ok := tokens.rows[pair.RefreshToken]; !ok {
		t.Fatalf("ledger row was deleted by refresh")
	}

	// logout makes the same signature-valid token unusable
	if err := s.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := s.Refresh(ctx, pair.RefreshToken); !errors.Is(err, errs.ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken after logout, got %v", err)
	}
}

func TestAuth_Refresh_Failures(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{byEmail: map[string]*model.User{}}
	u := seedUser(t, users, "alice@x.com", "correct")
	tokens := &fakeTokens{}
	s := newTestAuth(users, tokens, &fakeLimiter{allowOK: true})
	ctx := context.Background()

	// garbage and forged tokens
	if _, err := s.Refresh(ctx, "garbage"); !errors.Is(err, errs.ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken for garbage, got %v", err)
	}
	forged := token.New([]byte("other"), []byte("other"), time.Minute, time.Hour)
	f, _, _ := forged.Issue(token.DomainRefresh, u.ID)
	if _, err := s.Refresh(ctx, f); !errors.Is(err, errs.ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken for forged, got %v", err)
	}

	// an access token never passes the refresh domain
	pair, _, err := s.LoginWithIP(ctx, "alice@x.com", "correct", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := s.Refresh(ctx, pair.AccessToken); !errors.Is(err, errs.ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken for access token, got %v", err)
	}

	// expired ledger row counts as absent
	tokens.rows[pair.RefreshToken].ExpiresAt = time.Now().Add(-time.Minute)
	if _, err := s.Refresh(ctx, pair.RefreshToken); !errors.Is(err, errs.ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken for expired row, got %v", err)
	}

	// subject no longer resolves
	tokens.rows[pair.RefreshToken].ExpiresAt = time.Now().Add(time.Hour)
	delete(users.byEmail, "alice@x.com")
	if _, err := s.Refresh(ctx, pair.RefreshToken); !errors.Is(err, errs.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestAuth_Logout_NoopCases(t *testing.T) {
	t.Parallel()

	tokens := &fakeTokens{rows: map[string]*model.RefreshToken{}}
	s := newTestAuth(&fakeUsers{}, tokens, &fakeLimiter{})
	ctx := context.Background()

	if err := s.Logout(ctx, ""); err != nil {
		t.Fatalf("logout with empty token: %v", err)
	}
	if err := s.Logout(ctx, "never-issued"); err != nil {
		t.Fatalf("logout with unknown token: %v", err)
	}
}

func TestAuth_LogoutAll(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{byEmail: map[string]*model.User{}}
	seedUser(t, users, "alice@x.com", "correct")
	tokens := &fakeTokens{}
	s := newTestAuth(users, tokens, &fakeLimiter{allowOK: true})
	ctx := context.Background()

	p1, u, err := s.LoginWithIP(ctx, "alice@x.com", "correct", "ip1")
	if err != nil {
		t.Fatalf("login 1: %v", err)
	}
	p2, _, err := s.LoginWithIP(ctx, "alice@x.com", "correct", "ip2")
	if err != nil {
		t.Fatalf("login 2: %v", err)
	}
	if p1.RefreshToken == p2.RefreshToken {
		t.Fatalf("two logins produced the same refresh token")
	}

	if err := s.LogoutAll(ctx, u.ID); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	for _, tok := range []string{p1.RefreshToken, p2.RefreshToken} {
		if _, err := s.Refresh(ctx, tok); !errors.Is(err, errs.ErrInvalidRefreshToken) {
			t.Fatalf("want ErrInvalidRefreshToken after logout-all, got %v", err)
		}
	}
}

func TestAuth_Authenticate(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{byEmail: map[string]*model.User{}}
	u := seedUser(t, users, "alice@x.com", "correct")
	s := newTestAuth(users, &fakeTokens{}, &fakeLimiter{allowOK: true})
	ctx := context.Background()

	pair, _, err := s.LoginWithIP(ctx, "alice@x.com", "correct", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	got, err := s.Authenticate(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("authenticated wrong user")
	}

	// refresh tokens are not access tokens
	if _, err := s.Authenticate(ctx, pair.RefreshToken); err == nil {
		t.Fatalf("refresh token accepted as access token")
	}
}

func TestAuth_UpdateUser(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{byEmail: map[string]*model.User{}}
	u := seedUser(t, users, "alice@x.com", "OldPass1")
	s := newTestAuth(users, &fakeTokens{}, &fakeLimiter{})
	ctx := context.Background()

	badRole := model.Role("root")
	if _, err := s.UpdateUser(ctx, u.ID, UserChanges{Role: &badRole}); err == nil {
		t.Fatalf("want error on unknown role")
	}

	newPass := "NewPass1"
	role := model.RoleAdmin
	got, err := s.UpdateUser(ctx, u.ID, UserChanges{Password: &newPass, Role: &role})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Role != model.RoleAdmin {
		t.Fatalf("role not updated")
	}
	if !pkgcrypto.VerifyPassword(got.PasswordHash, newPass) {
		t.Fatalf("new password does not verify")
	}
	if pkgcrypto.VerifyPassword(got.PasswordHash, "OldPass1") {
		t.Fatalf("old password still verifies")
	}
}

func TestAuth_SweepExpiredTokens(t *testing.T) {
	t.Parallel()

	tokens := &fakeTokens{rows: map[string]*model.RefreshToken{
		"live":    {Token: "live", ExpiresAt: time.Now().Add(time.Hour)},
		"stale-1": {Token: "stale-1", ExpiresAt: time.Now().Add(-time.Hour)},
		"stale-2": {Token: "stale-2", ExpiresAt: time.Now().Add(-time.Minute)},
	}}
	s := newTestAuth(&fakeUsers{}, tokens, &fakeLimiter{})

	n, err := s.SweepExpiredTokens(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("swept %d rows, want 2", n)
	}
	if _, ok := tokens.rows["live"]; !ok {
		t.Fatalf("live row was swept")
	}
}
