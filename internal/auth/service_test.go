package auth

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parkfinder-backend/internal/users"
	pkgAuth "github.com/angelmondragon/parkfinder-backend/pkg/auth"
	"github.com/angelmondragon/parkfinder-backend/pkg/auth/session"
	"github.com/angelmondragon/parkfinder-backend/pkg/config"
	"github.com/angelmondragon/parkfinder-backend/pkg/db/models"
	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/security"
)

var (
	testJWT = config.JWTConfig{
		Secret:                 "secret",
		Issuer:                 "parkfinder",
		ExpirationMinutes:      30,
		RefreshTokenTTLMinutes: 120,
	}
	testPassword = config.PasswordConfig{
		ArgonMemoryKB:    64,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
)

type fakeUserRepo struct {
	byID       map[uuid.UUID]*models.User
	lastLogins map[uuid.UUID]time.Time
}

func newFakeUserRepo(seed ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{byID: map[uuid.UUID]*models.User{}, lastLogins: map[uuid.UUID]time.Time{}}
	for _, u := range seed {
		repo.byID[u.ID] = u
	}
	return repo
}

func (f *fakeUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.IsActive = true
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.lastLogins[id] = at
	return nil
}

func (f *fakeUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	u, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = hash
	return nil
}

type storedSession struct {
	userID uuid.UUID
	token  string
}

type fakeSessions struct {
	sessions map[string]storedSession
	seq      int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]storedSession{}}
}

func (f *fakeSessions) Generate(ctx context.Context, userID uuid.UUID) (session.Issued, error) {
	f.seq++
	issued := session.Issued{AccessID: uuid.NewString(), RefreshToken: fmt.Sprintf("refresh-%d", f.seq)}
	f.sessions[issued.AccessID] = storedSession{userID: userID, token: issued.RefreshToken}
	return issued, nil
}

func (f *fakeSessions) Rotate(ctx context.Context, oldAccessID, provided string) (session.Issued, uuid.UUID, error) {
	stored, ok := f.sessions[oldAccessID]
	if !ok || stored.token != provided {
		return session.Issued{}, uuid.Nil, session.ErrInvalidRefreshToken
	}
	delete(f.sessions, oldAccessID)
	issued, err := f.Generate(ctx, stored.userID)
	return issued, stored.userID, err
}

func (f *fakeSessions) Revoke(ctx context.Context, accessID string) error {
	delete(f.sessions, accessID)
	return nil
}

func buildTestService(t *testing.T, repo *fakeUserRepo, sessions *fakeSessions, pw config.PasswordConfig) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: pw,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func seedUser(t *testing.T, password string, role enums.UserRole, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Name:         "Ravi",
		Email:        "ravi@example.com",
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if !pkgerrors.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func strPtr(v string) *string { return &v }

func TestRegisterIssuesSessionBoundTokens(t *testing.T) {
	repo := newFakeUserRepo()
	sessions := newFakeSessions()
	svc := buildTestService(t, repo, sessions, testPassword)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "  Asha  ",
		Email:    " Asha@Example.com ",
		Password: "parking123",
		Phone:    strPtr("+91 98450 00000"),
		Role:     "owner",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Email != "asha@example.com" || resp.User.Name != "Asha" {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	if resp.User.Role != enums.UserRoleOwner {
		t.Fatalf("expected owner role, got %s", resp.User.Role)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != resp.User.ID || claims.Role != enums.UserRoleOwner {
		t.Fatalf("unexpected claims %+v", claims)
	}
	stored, ok := sessions.sessions[claims.ID]
	if !ok || stored.token != resp.RefreshToken {
		t.Fatalf("expected session keyed by jti %s", claims.ID)
	}
	if _, ok := repo.lastLogins[resp.User.ID]; !ok {
		t.Fatalf("expected last login to be recorded")
	}

	user := repo.byID[resp.User.ID]
	if ok, _ := security.VerifyPassword("parking123", user.PasswordHash); !ok {
		t.Fatalf("expected stored hash to verify")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := buildTestService(t, newFakeUserRepo(), newFakeSessions(), testPassword)

	cases := map[string]RegisterRequest{
		"admin role":     {Name: "A", Email: "a@example.com", Password: "parking123", Role: "admin"},
		"staff role":     {Name: "A", Email: "a@example.com", Password: "parking123", Role: "staff"},
		"short password": {Name: "A", Email: "a@example.com", Password: "abc"},
		"blank name":     {Name: "  ", Email: "a@example.com", Password: "parking123"},
		"bad phone":      {Name: "A", Email: "a@example.com", Password: "parking123", Phone: strPtr("call me")},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), req)
			assertCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	existing := seedUser(t, "parking123", enums.UserRoleUser, true)
	svc := buildTestService(t, newFakeUserRepo(existing), newFakeSessions(), testPassword)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Other",
		Email:    "RAVI@example.com",
		Password: "parking123",
	})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	active := seedUser(t, "parking123", enums.UserRoleUser, true)
	svc := buildTestService(t, newFakeUserRepo(active), newFakeSessions(), testPassword)

	_, err := svc.Login(context.Background(), LoginRequest{Email: active.Email, Password: "wrong-pass"})
	assertCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "parking123"})
	assertCode(t, err, pkgerrors.CodeUnauthorized)

	inactive := seedUser(t, "parking123", enums.UserRoleUser, false)
	svc = buildTestService(t, newFakeUserRepo(inactive), newFakeSessions(), testPassword)
	_, err = svc.Login(context.Background(), LoginRequest{Email: inactive.Email, Password: "parking123"})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLoginCarriesRoleClaim(t *testing.T) {
	admin := seedUser(t, "parking123", enums.UserRoleAdmin, true)
	svc := buildTestService(t, newFakeUserRepo(admin), newFakeSessions(), testPassword)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "  RAVI@example.com", Password: "parking123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Role != enums.UserRoleAdmin {
		t.Fatalf("expected admin claim, got %s", claims.Role)
	}
	if resp.User.LastLoginAt == nil {
		t.Fatalf("expected last login on response")
	}
}

func TestLoginUpgradesOutdatedHash(t *testing.T) {
	user := seedUser(t, "parking123", enums.UserRoleUser, true)
	original := user.PasswordHash
	repo := newFakeUserRepo(user)

	stronger := testPassword
	stronger.ArgonTime = 2
	svc := buildTestService(t, repo, newFakeSessions(), stronger)

	if _, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "parking123"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	updated := repo.byID[user.ID].PasswordHash
	if updated == original {
		t.Fatalf("expected hash to be upgraded")
	}
	if !strings.Contains(updated, "t=2") {
		t.Fatalf("expected new parameters in %q", updated)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	user := seedUser(t, "parking123", enums.UserRoleUser, true)
	sessions := newFakeSessions()
	svc := buildTestService(t, newFakeUserRepo(user), sessions, testPassword)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "parking123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), resp.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.sessions) != 0 {
		t.Fatalf("expected session to be revoked, have %d", len(sessions.sessions))
	}

	assertCode(t, svc.Logout(context.Background(), "not-a-token"), pkgerrors.CodeUnauthorized)
}

func TestRefreshRotatesSession(t *testing.T) {
	user := seedUser(t, "parking123", enums.UserRoleStaff, true)
	repo := newFakeUserRepo(user)
	sessions := newFakeSessions()
	svc := buildTestService(t, repo, sessions, testPassword)
	ctx := context.Background()

	first, err := svc.Login(ctx, LoginRequest{Email: user.Email, Password: "parking123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err = svc.Refresh(ctx, first.AccessToken, "wrong")
	assertCode(t, err, pkgerrors.CodeUnauthorized)

	second, err := svc.Refresh(ctx, first.AccessToken, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("expected rotated refresh token")
	}
	oldClaims, _ := pkgAuth.ParseAccessToken(testJWT, first.AccessToken)
	newClaims, err := pkgAuth.ParseAccessToken(testJWT, second.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if newClaims.ID == oldClaims.ID {
		t.Fatalf("expected new jti")
	}
	if newClaims.Role != enums.UserRoleStaff {
		t.Fatalf("expected role from stored user, got %s", newClaims.Role)
	}
	if _, ok := sessions.sessions[oldClaims.ID]; ok {
		t.Fatalf("expected old session to be gone")
	}

	_, err = svc.Refresh(ctx, first.AccessToken, first.RefreshToken)
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	user := seedUser(t, "parking123", enums.UserRoleUser, true)
	repo := newFakeUserRepo(user)
	sessions := newFakeSessions()
	svc := buildTestService(t, repo, sessions, testPassword)
	ctx := context.Background()

	resp, err := svc.Login(ctx, LoginRequest{Email: user.Email, Password: "parking123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	repo.byID[user.ID].IsActive = false

	_, err = svc.Refresh(ctx, resp.AccessToken, resp.RefreshToken)
	assertCode(t, err, pkgerrors.CodeUnauthorized)
	if len(sessions.sessions) != 0 {
		t.Fatalf("expected no live sessions, have %d", len(sessions.sessions))
	}
}
