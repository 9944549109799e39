package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/outpost9/accountd/pkg/domain"
)

var principalTestColumns = []string{
	"id", "username", "email", "password_hash", "role", "status",
	"last_login", "login_history", "two_factor_enabled", "two_factor_code_hash",
	"two_factor_code_expires_at", "two_factor_code_used", "reset_code_hash",
	"reset_code_expires_at", "meta", "created_at", "updated_at",
}

func principalRow(id uuid.UUID) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(principalTestColumns).AddRow(
		id.String(), "alice", "alice@example.com", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"user", "active", nil, []byte(`["2026-01-02T03:04:05Z"]`), false, "",
		nil, false, "", nil, nil, now, now,
	)
}

func newMockRepo(t *testing.T) (*PrincipalsRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewPrincipalsRepository(db), mock, func() { db.Close() }
}

func TestGetByEmail_NormalizesBeforeQuery(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	id := uuid.New()
	mock.ExpectQuery("FROM users WHERE email").
		WithArgs("alice@example.com").
		WillReturnRows(principalRow(id))

	p, err := repo.GetByEmail(context.Background(), domain.KindUser, "  Alice@Example.COM ")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if p.ID != id {
		t.Errorf("id = %v, want %v", p.ID, id)
	}
	if len(p.LoginHistory) != 1 {
		t.Errorf("login history not decoded: %v", p.LoginHistory)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery("FROM admins WHERE id").
		WillReturnRows(sqlmock.NewRows(principalTestColumns))

	_, err := repo.GetByID(context.Background(), domain.KindAdmin, uuid.New())
	if !errors.Is(err, domain.ErrPrincipalNotFound) {
		t.Errorf("error = %v, want ErrPrincipalNotFound", err)
	}
}

func TestCreate_MapsUniqueViolations(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       error
	}{
		{"email conflict", "users_email_key", domain.ErrEmailTaken},
		{"username conflict", "users_username_key", domain.ErrUsernameTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, done := newMockRepo(t)
			defer done()

			mock.ExpectExec("INSERT INTO users").
				WillReturnError(&pq.Error{Code: "23505", Constraint: tt.constraint})

			p := &domain.Principal{ID: uuid.New(), Username: "alice", Email: "alice@example.com", PasswordHash: "h", Role: "user", Status: "active"}
			err := repo.Create(context.Background(), domain.KindUser, p)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreate_InvalidKind(t *testing.T) {
	repo, _, done := newMockRepo(t)
	defer done()

	err := repo.Create(context.Background(), domain.Kind("service"), &domain.Principal{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestUpdate_OnlyProvidedFieldsInSetClause(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	id := uuid.New()
	status := "suspended"

	// Only status (plus updated_at) may appear; username/email/role columns
	// must not be touched when their fields are nil.
	mock.ExpectQuery(`UPDATE users SET status = \$2, updated_at = NOW\(\) WHERE id = \$1 RETURNING`).
		WithArgs(id.String(), status).
		WillReturnRows(principalRow(id))

	if _, err := repo.Update(context.Background(), domain.KindUser, id, domain.UpdateFields{Status: &status}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdate_DisablingTwoFactorClearsChallenge(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	id := uuid.New()
	disabled := false

	mock.ExpectQuery(`UPDATE users SET two_factor_enabled = \$2, two_factor_code_hash = '', two_factor_code_expires_at = NULL, two_factor_code_used = FALSE, updated_at = NOW\(\)`).
		WithArgs(id.String(), disabled).
		WillReturnRows(principalRow(id))

	if _, err := repo.Update(context.Background(), domain.KindUser, id, domain.UpdateFields{TwoFactorEnabled: &disabled}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdate_EmptyFieldsFallsBackToGet(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	id := uuid.New()
	mock.ExpectQuery("FROM users WHERE id").
		WithArgs(id.String()).
		WillReturnRows(principalRow(id))

	if _, err := repo.Update(context.Background(), domain.KindUser, id, domain.UpdateFields{}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestList_ClampsPageSize(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(250))
	mock.ExpectQuery("FROM users ORDER BY created_at DESC LIMIT").
		WithArgs(domain.MaxPageSize, 0).
		WillReturnRows(principalRow(uuid.New()))

	results, total, err := repo.List(context.Background(), domain.KindUser, domain.ListParams{Page: 1, PageSize: 500})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 250 {
		t.Errorf("total = %d, want 250", total)
	}
	if len(results) != 1 {
		t.Errorf("results length = %d, want 1", len(results))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestList_SearchAndStatusFilter(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM admins WHERE \(username ILIKE \$1 OR email ILIKE \$1\) AND status = \$2`).
		WithArgs("%ali%", "active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM admins WHERE \(username ILIKE \$1 OR email ILIKE \$1\) AND status = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("%ali%", "active", 10, 0).
		WillReturnRows(principalRow(uuid.New()))

	_, total, err := repo.List(context.Background(), domain.KindAdmin, domain.ListParams{Page: 1, PageSize: 10, Search: "ali", Status: "active"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectExec("DELETE FROM users WHERE id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), domain.KindUser, uuid.New())
	if !errors.Is(err, domain.ErrPrincipalNotFound) {
		t.Errorf("error = %v, want ErrPrincipalNotFound", err)
	}
}

func TestDelete_Success(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectExec("DELETE FROM admins WHERE id").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), domain.KindAdmin, uuid.New()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestMarkTwoFactorUsed_NotFound(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectExec("UPDATE users SET two_factor_code_used = TRUE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkTwoFactorUsed(context.Background(), domain.KindUser, uuid.New())
	if !errors.Is(err, domain.ErrPrincipalNotFound) {
		t.Errorf("error = %v, want ErrPrincipalNotFound", err)
	}
}

func TestRecordLogin_PersistsHistoryJSON(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	id := uuid.New()
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	mock.ExpectExec(`UPDATE users SET last_login = \$2, login_history = \$3`).
		WithArgs(id.String(), at, []byte(`["2026-02-03T04:05:06Z"]`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.RecordLogin(context.Background(), domain.KindUser, id, at, []time.Time{at}); err != nil {
		t.Fatalf("RecordLogin: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
