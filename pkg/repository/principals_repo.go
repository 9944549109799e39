package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/outpost9/accountd/pkg/domain"
)

// principalColumns is the full column list shared by both principal tables.
const principalColumns = `id, username, email, password_hash, role, status,
	last_login, login_history, two_factor_enabled, two_factor_code_hash,
	two_factor_code_expires_at, two_factor_code_used, reset_code_hash,
	reset_code_expires_at, meta, created_at, updated_at`

// PrincipalsRepository persists both principal kinds. The kind selects the
// table; the queries are otherwise identical, so there is exactly one copy
// of the logic for users and admins.
type PrincipalsRepository struct {
	db *sql.DB
}

// NewPrincipalsRepository creates a new principals repository.
func NewPrincipalsRepository(db *sql.DB) *PrincipalsRepository {
	return &PrincipalsRepository{db: db}
}

func tableFor(kind domain.Kind) (string, error) {
	switch kind {
	case domain.KindUser:
		return "users", nil
	case domain.KindAdmin:
		return "admins", nil
	}
	return "", domain.ErrInvalidInput
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrincipal(row rowScanner) (*domain.Principal, error) {
	p := &domain.Principal{}
	var history []byte
	var meta []byte

	err := row.Scan(
		&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.Role, &p.Status,
		&p.LastLogin, &history, &p.TwoFactorEnabled, &p.TwoFactorCodeHash,
		&p.TwoFactorCodeExpiresAt, &p.TwoFactorCodeUsed, &p.ResetCodeHash,
		&p.ResetCodeExpiresAt, &meta, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPrincipalNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.LoginHistory); err != nil {
			return nil, fmt.Errorf("failed to decode login history: %w", err)
		}
	}
	if len(meta) > 0 {
		p.Meta = json.RawMessage(meta)
	}
	return p, nil
}

// mapUniqueViolation translates Postgres unique-index violations on the
// email/username indexes into the domain conflict errors.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch {
		case strings.Contains(pqErr.Constraint, "email"):
			return domain.ErrEmailTaken
		case strings.Contains(pqErr.Constraint, "username"):
			return domain.ErrUsernameTaken
		}
	}
	return err
}

// Create inserts a new principal.
func (r *PrincipalsRepository) Create(ctx context.Context, kind domain.Kind, p *domain.Principal) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	history, err := json.Marshal(p.LoginHistory)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, username, email, password_hash, role, status,
			login_history, two_factor_enabled, meta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, table)
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.Username, p.Email, p.PasswordHash, p.Role, p.Status,
		history, p.TwoFactorEnabled, []byte(p.Meta), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

// GetByID retrieves a principal by id, password hash included; callers that
// hand the principal outward strip it.
func (r *PrincipalsRepository) GetByID(ctx context.Context, kind domain.Kind, id uuid.UUID) (*domain.Principal, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, principalColumns, table)
	return scanPrincipal(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a principal by normalized email.
func (r *PrincipalsRepository) GetByEmail(ctx context.Context, kind domain.Kind, email string) (*domain.Principal, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE email = $1`, principalColumns, table)
	return scanPrincipal(r.db.QueryRowContext(ctx, query, email))
}

// GetByUsername retrieves a principal by exact username.
func (r *PrincipalsRepository) GetByUsername(ctx context.Context, kind domain.Kind, username string) (*domain.Principal, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE username = $1`, principalColumns, table)
	return scanPrincipal(r.db.QueryRowContext(ctx, query, username))
}

// Update writes the allow-listed fields and returns the updated principal.
// The SET clause is built only from the non-nil members of UpdateFields, so
// nothing outside the allow-list can reach storage through this path.
func (r *PrincipalsRepository) Update(ctx context.Context, kind domain.Kind, id uuid.UUID, fields domain.UpdateFields) (*domain.Principal, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if fields.Empty() {
		return r.GetByID(ctx, kind, id)
	}

	set := make([]string, 0, 6)
	args := []interface{}{id}
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.Username != nil {
		add("username", *fields.Username)
	}
	if fields.Email != nil {
		add("email", strings.ToLower(strings.TrimSpace(*fields.Email)))
	}
	if fields.Status != nil {
		add("status", *fields.Status)
	}
	if fields.Role != nil {
		add("role", *fields.Role)
	}
	if fields.TwoFactorEnabled != nil {
		add("two_factor_enabled", *fields.TwoFactorEnabled)
		// Disabling 2FA invalidates any pending challenge.
		if !*fields.TwoFactorEnabled {
			set = append(set,
				"two_factor_code_hash = ''",
				"two_factor_code_expires_at = NULL",
				"two_factor_code_used = FALSE")
		}
	}
	if fields.Meta != nil {
		add("meta", []byte(fields.Meta))
	}
	set = append(set, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1 RETURNING %s`,
		table, strings.Join(set, ", "), principalColumns)

	p, err := scanPrincipal(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return p, nil
}

// UpdateStatus sets the account status.
func (r *PrincipalsRepository) UpdateStatus(ctx context.Context, kind domain.Kind, id uuid.UUID, status string) (*domain.Principal, error) {
	return r.Update(ctx, kind, id, domain.UpdateFields{Status: &status})
}

// UpdatePassword stores a new password hash.
func (r *PrincipalsRepository) UpdatePassword(ctx context.Context, kind domain.Kind, id uuid.UUID, passwordHash string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET password_hash = $2, updated_at = NOW() WHERE id = $1`, table)
	return r.execOne(ctx, query, id, passwordHash)
}

// RecordLogin persists the last-login timestamp and the bounded history.
func (r *PrincipalsRepository) RecordLogin(ctx context.Context, kind domain.Kind, id uuid.UUID, at time.Time, history []time.Time) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(history)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET last_login = $2, login_history = $3, updated_at = NOW() WHERE id = $1`, table)
	return r.execOne(ctx, query, id, at, encoded)
}

// SetTwoFactorChallenge stores a fresh OTP fingerprint and expiry,
// overwriting any previous challenge and clearing the used flag.
func (r *PrincipalsRepository) SetTwoFactorChallenge(ctx context.Context, kind domain.Kind, id uuid.UUID, fingerprint string, expiresAt time.Time) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET two_factor_code_hash = $2,
		    two_factor_code_expires_at = $3,
		    two_factor_code_used = FALSE,
		    updated_at = NOW()
		WHERE id = $1
	`, table)
	return r.execOne(ctx, query, id, fingerprint, expiresAt)
}

// MarkTwoFactorUsed sets the one-shot used flag.
func (r *PrincipalsRepository) MarkTwoFactorUsed(ctx context.Context, kind domain.Kind, id uuid.UUID) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET two_factor_code_used = TRUE, updated_at = NOW() WHERE id = $1`, table)
	return r.execOne(ctx, query, id)
}

// SetResetChallenge stores a fresh reset-code fingerprint and expiry,
// overwriting any pending one.
func (r *PrincipalsRepository) SetResetChallenge(ctx context.Context, kind domain.Kind, id uuid.UUID, fingerprint string, expiresAt time.Time) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET reset_code_hash = $2,
		    reset_code_expires_at = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, table)
	return r.execOne(ctx, query, id, fingerprint, expiresAt)
}

// ResetPassword stores a new password hash and clears the reset challenge in
// one statement, making the code single use.
func (r *PrincipalsRepository) ResetPassword(ctx context.Context, kind domain.Kind, id uuid.UUID, passwordHash string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET password_hash = $2,
		    reset_code_hash = '',
		    reset_code_expires_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`, table)
	return r.execOne(ctx, query, id, passwordHash)
}

// List returns one page of principals ordered by creation time descending,
// plus the total match count. The page size is clamped to MaxPageSize.
func (r *PrincipalsRepository) List(ctx context.Context, kind domain.Kind, params domain.ListParams) ([]domain.Principal, int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, 0, err
	}
	params.Normalize()

	where := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(username ILIKE $%d OR email ILIKE $%d)", n, n))
	}
	if params.Status != "" {
		args = append(args, params.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, table, filter)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		principalColumns, table, filter, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, params.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Delete removes a principal permanently.
func (r *PrincipalsRepository) Delete(ctx context.Context, kind domain.Kind, id uuid.UUID) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table)
	return r.execOne(ctx, query, id)
}

// execOne runs a statement expected to affect exactly one row and maps zero
// affected rows to ErrPrincipalNotFound.
func (r *PrincipalsRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrPrincipalNotFound
	}
	return nil
}
