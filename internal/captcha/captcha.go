// Package captcha はログイン前に提示する短命なテキストチャレンジを発行・検証する。
//
// チャレンジ文字列はmath/randで生成し、平文のまま利用者に返す。
// 自動化された大量ログインの抑止が目的であり、暗号学的な強度は持たない。
package captcha

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/campusmarket/internal/model"
	"github.com/hitoshi/campusmarket/internal/repository"
)

// Alphabet はチャレンジ文字列に使う文字集合。
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ErrSessionRequired はセッションIDが空の場合のエラー。
var ErrSessionRequired = errors.New("captcha: session id is required")

// Generator は長さnのチャレンジ文字列を生成する。
type Generator func(n int) string

// RandomText はAlphabetから長さnの文字列を生成する。
func RandomText(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = Alphabet[rand.IntN(len(Alphabet))]
	}
	return string(b)
}

// Config はチャレンジサービスの設定。
type Config struct {
	Length int           // 文字数（デフォルト6）
	TTL    time.Duration // 有効期間（デフォルト10分）

	// Generator と Now はテストで差し替える。nilの場合はRandomTextとtime.Nowを使う。
	Generator Generator
	Now       func() time.Time
}

// Service はセッション単位のCAPTCHAチャレンジを管理する。
type Service struct {
	repo     repository.ChallengeRepository
	length   int
	ttl      time.Duration
	generate Generator
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.ChallengeRepository, cfg Config) *Service {
	if cfg.Length <= 0 {
		cfg.Length = 6
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Generator == nil {
		cfg.Generator = RandomText
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		repo:     repo,
		length:   cfg.Length,
		ttl:      cfg.TTL,
		generate: cfg.Generator,
		now:      cfg.Now,
	}
}

// Issue は新しいチャレンジを発行し、その文字列を返す。
// 同じセッションの既存チャレンジは置き換えられ無効になる。
func (s *Service) Issue(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrSessionRequired
	}

	now := s.now()
	c := &model.Challenge{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Text:      s.generate(s.length),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.Replace(ctx, c); err != nil {
		return "", fmt.Errorf("failed to issue captcha: %w", err)
	}
	return c.Text, nil
}

// Current はセッションの有効なチャレンジを返す。存在しないか期限切れの場合はnil。
func (s *Service) Current(ctx context.Context, sessionID string) (*model.Challenge, error) {
	if sessionID == "" {
		return nil, nil
	}
	c, err := s.repo.FindActive(ctx, sessionID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to load captcha: %w", err)
	}
	return c, nil
}

// Verify は入力値が現在のチャレンジと一致するかを返す。チャレンジは消費しない。
// チャレンジが無い場合や入力が空の場合はfalse。
func (s *Service) Verify(ctx context.Context, sessionID, candidate string) (bool, error) {
	if sessionID == "" || candidate == "" {
		return false, nil
	}
	c, err := s.Current(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return c.Matches(candidate), nil
}

// Redeem は入力値が一致した場合にチャレンジを消費してtrueを返す。
// 照合と消費は1回の条件付き削除で行う。
func (s *Service) Redeem(ctx context.Context, sessionID, candidate string) (bool, error) {
	if sessionID == "" || candidate == "" {
		return false, nil
	}
	ok, err := s.repo.Redeem(ctx, sessionID, candidate, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to redeem captcha: %w", err)
	}
	return ok, nil
}
