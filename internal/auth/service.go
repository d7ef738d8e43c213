// Package auth はCAPTCHA付きログイン、identityの払い出し、ベアラートークンの発行を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/campusmarket/internal/metrics"
	"github.com/hitoshi/campusmarket/internal/model"
	"github.com/hitoshi/campusmarket/internal/repository"
)

// ChallengeService はログインで使うCAPTCHAチャレンジ操作のインターフェース。
type ChallengeService interface {
	Issue(ctx context.Context, sessionID string) (string, error)
	Current(ctx context.Context, sessionID string) (*model.Challenge, error)
	Redeem(ctx context.Context, sessionID, candidate string) (bool, error)
}

// TokenIssuer はトークン発行のインターフェース。
type TokenIssuer interface {
	Issue(identityID, loginID string) (*IssuedToken, error)
}

// LoginIDValidator はログインIDの検証インターフェース。
type LoginIDValidator interface {
	Validate(loginID string) error
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  *model.Identity
}

// Service はログインフローのビジネスロジックを提供する。
type Service struct {
	captcha    ChallengeService
	identities repository.IdentityRepository
	tokens     TokenIssuer
	policy     LoginIDValidator
	metrics    metrics.MetricsCollector
}

// NewService はServiceを生成する。mcがnilの場合はメトリクスを記録しない。
func NewService(
	captcha ChallengeService,
	identities repository.IdentityRepository,
	tokens TokenIssuer,
	policy LoginIDValidator,
	mc metrics.MetricsCollector,
) *Service {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Service{
		captcha:    captcha,
		identities: identities,
		tokens:     tokens,
		policy:     policy,
		metrics:    mc,
	}
}

// IssueChallenge はセッションに新しいCAPTCHAチャレンジを発行する。
func (s *Service) IssueChallenge(ctx context.Context, sessionID string) (string, error) {
	text, err := s.captcha.Issue(ctx, sessionID)
	if err != nil {
		return "", err
	}
	s.metrics.RecordCaptchaIssued()
	return text, nil
}

// Login はCAPTCHAの回答を検証した上でログインIDに対応するidentityを特定し、トークンを発行する。
// 未登録のログインIDの場合はidentityを作成する。
//
// CAPTCHAの検証に失敗した場合は新しいチャレンジを発行し、エラーに添付して返す。
// 検証に成功したチャレンジはその時点で消費され、以降のログインIDの検証に失敗しても再利用できない。
func (s *Service) Login(ctx context.Context, sessionID, loginID, captchaAnswer string) (*LoginResult, error) {
	loginID = strings.TrimSpace(loginID)
	captchaAnswer = strings.TrimSpace(captchaAnswer)

	// 1. 入力チェック
	if loginID == "" || captchaAnswer == "" {
		s.metrics.RecordLogin(metrics.LoginInvalidInput)
		return nil, model.NewValidationError("Login ID and CAPTCHA are required")
	}

	// 2. チャレンジの存在確認
	current, err := s.captcha.Current(ctx, sessionID)
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginError)
		return nil, err
	}
	if current == nil {
		next, err := s.IssueChallenge(ctx, sessionID)
		if err != nil {
			s.metrics.RecordLogin(metrics.LoginError)
			return nil, err
		}
		s.metrics.RecordLogin(metrics.LoginCaptchaMissing)
		return nil, model.NewCaptchaMissingError(next)
	}

	// 3. 回答の照合と消費
	ok, err := s.captcha.Redeem(ctx, sessionID, captchaAnswer)
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginError)
		return nil, err
	}
	if !ok {
		next, err := s.IssueChallenge(ctx, sessionID)
		if err != nil {
			s.metrics.RecordLogin(metrics.LoginError)
			return nil, err
		}
		s.metrics.RecordLogin(metrics.LoginCaptchaInvalid)
		return nil, model.NewCaptchaInvalidError(next)
	}

	// 4. ログインIDの形式と年度
	if err := s.policy.Validate(loginID); err != nil {
		s.metrics.RecordLogin(metrics.LoginInvalidID)
		return nil, err
	}

	// 5. identityの検索・作成
	identity, err := s.resolveIdentity(ctx, loginID)
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginError)
		return nil, err
	}

	// 6. トークン発行
	issued, err := s.tokens.Issue(identity.ID, identity.LoginID)
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginError)
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.RecordLogin(metrics.LoginSuccess)
	slog.Info("identity logged in", slog.String("user_id", identity.ID))

	return &LoginResult{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		Identity:  identity,
	}, nil
}

// resolveIdentity はログインIDに対応するidentityを返す。存在しない場合は作成する。
func (s *Service) resolveIdentity(ctx context.Context, loginID string) (*model.Identity, error) {
	identity, err := s.identities.FindByLoginID(ctx, loginID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if identity != nil {
		return identity, nil
	}

	identity, err = s.identities.Create(ctx, loginID)
	if err != nil {
		return nil, fmt.Errorf("failed to provision identity: %w", err)
	}
	if identity == nil {
		return nil, errors.New("failed to provision identity: repository returned no identity")
	}

	slog.Info("identity provisioned", slog.String("user_id", identity.ID))
	return identity, nil
}
