package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/campusmarket/internal/model"
)

// PostgresIdentityRepo はPostgreSQLを使用したidentityリポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByID は指定IDのidentityを取得する。
// UUIDとして不正なIDの場合もnilを返す。
func (r *PostgresIdentityRepo) FindByID(ctx context.Context, id string) (*model.Identity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	identity, err := scanIdentity(r.db.QueryRowContext(ctx,
		`SELECT id, login_id, display_name, created_at
		 FROM identities
		 WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	return identity, nil
}

// FindByLoginID はログインIDでidentityを検索する。
func (r *PostgresIdentityRepo) FindByLoginID(ctx context.Context, loginID string) (*model.Identity, error) {
	identity, err := scanIdentity(r.db.QueryRowContext(ctx,
		`SELECT id, login_id, display_name, created_at
		 FROM identities
		 WHERE login_id = $1`,
		loginID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find identity by login id: %w", err)
	}
	return identity, nil
}

// Create はログインIDに対応するidentityを作成する。
// 同時に初回ログインが行われた場合でも、ON CONFLICTで既存行を返すため
// 同じログインIDに対して常に同じidentityに収束する。
func (r *PostgresIdentityRepo) Create(ctx context.Context, loginID string) (*model.Identity, error) {
	identity, err := scanIdentity(r.db.QueryRowContext(ctx,
		`INSERT INTO identities (id, login_id)
		 VALUES ($1, $2)
		 ON CONFLICT (login_id) DO UPDATE SET login_id = EXCLUDED.login_id
		 RETURNING id, login_id, display_name, created_at`,
		uuid.NewString(), loginID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}
	if identity == nil {
		return nil, fmt.Errorf("failed to create identity: no row returned")
	}
	return identity, nil
}

// scanIdentity は1行をidentityに変換する。行が存在しない場合はnilを返す。
func scanIdentity(row *sql.Row) (*model.Identity, error) {
	identity := &model.Identity{}
	var displayName sql.NullString

	err := row.Scan(&identity.ID, &identity.LoginID, &displayName, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if displayName.Valid {
		identity.DisplayName = &displayName.String
	}
	return identity, nil
}

// compile-time interface check
var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
