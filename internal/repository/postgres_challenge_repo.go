package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/campusmarket/internal/model"
)

// PostgresChallengeRepo はPostgreSQLを使用したCAPTCHAチャレンジリポジトリ。
type PostgresChallengeRepo struct {
	db *sql.DB
}

// NewPostgresChallengeRepo はPostgresChallengeRepoを生成する。
func NewPostgresChallengeRepo(db *sql.DB) *PostgresChallengeRepo {
	return &PostgresChallengeRepo{db: db}
}

// Replace はセッションIDのチャレンジを新しいものに置き換える。
// 既存のチャレンジは上書きされ、以後その文字列では検証に成功しない。
func (r *PostgresChallengeRepo) Replace(ctx context.Context, c *model.Challenge) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO captcha_challenges (id, session_id, text, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id) DO UPDATE
		 SET id = EXCLUDED.id, text = EXCLUDED.text,
		     expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at
		 RETURNING id`,
		c.ID, c.SessionID, c.Text, c.ExpiresAt, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to store captcha challenge: %w", err)
	}
	return nil
}

// FindActive はセッションIDに対応する有効期限内のチャレンジを取得する。
func (r *PostgresChallengeRepo) FindActive(ctx context.Context, sessionID string, now time.Time) (*model.Challenge, error) {
	c := &model.Challenge{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, session_id, text, expires_at, created_at
		 FROM captcha_challenges
		 WHERE session_id = $1 AND expires_at > $2`,
		sessionID, now,
	).Scan(&c.ID, &c.SessionID, &c.Text, &c.ExpiresAt, &c.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find captcha challenge: %w", err)
	}
	return c, nil
}

// Redeem は回答が一致する有効期限内のチャレンジを削除する。
// 大文字小文字を区別せずに照合する。
func (r *PostgresChallengeRepo) Redeem(ctx context.Context, sessionID, answer string, now time.Time) (bool, error) {
	if sessionID == "" || answer == "" {
		return false, nil
	}

	var id string
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM captcha_challenges
		 WHERE session_id = $1 AND expires_at > $2 AND lower(text) = lower($3)
		 RETURNING id`,
		sessionID, now, answer,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to redeem captcha challenge: %w", err)
	}
	return true, nil
}

// DeleteExpired は期限切れのチャレンジを削除する。
func (r *PostgresChallengeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM captcha_challenges WHERE expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired captcha challenges: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ ChallengeRepository = (*PostgresChallengeRepo)(nil)
