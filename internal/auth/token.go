package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/campusmarket/internal/config"
)

// DefaultTokenTTL はトークンの有効期間のデフォルト値。
const DefaultTokenTTL = 5 * time.Hour

// ErrInvalidToken は署名不正・期限切れ・形式不正のトークンを表す。
var ErrInvalidToken = errors.New("invalid token")

// TokenUser はトークンに載せるidentityの情報。
type TokenUser struct {
	ID      string `json:"id"`
	LoginID string `json:"loginId"`
}

// Claims はベアラートークンのクレーム。
type Claims struct {
	User TokenUser `json:"user"`
	jwt.RegisteredClaims
}

// IssuedToken は発行したトークンと有効期限。
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenService はHS256で署名したJWTの発行と検証を行う。
// 状態を持たないため並行に呼び出してよい。
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService はTokenServiceを生成する。
// 署名鍵が空の場合はトークンを発行できないため*config.ConfigErrorを返す。
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, &config.ConfigError{Missing: []string{"JWT_SECRET"}}
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue はidentityのトークンを発行する。
func (s *TokenService) Issue(identityID, loginID string) (*IssuedToken, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		User: TokenUser{ID: identityID, LoginID: loginID},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify はトークンを検証しクレームを返す。
// 検証に失敗した場合はErrInvalidTokenをラップしたエラーを返す。
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.User.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
