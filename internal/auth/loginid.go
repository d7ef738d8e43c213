package auth

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/hitoshi/campusmarket/internal/model"
)

// LoginIDPolicy は学籍ログインIDの形式と入学年度の範囲を検証する。
// ログインIDは10桁の数字と大学ドメインからなり、先頭4桁が入学年度を表す。
type LoginIDPolicy struct {
	domain  string
	minYear int
	pattern *regexp.Regexp
	now     func() time.Time
}

// NewLoginIDPolicy はLoginIDPolicyを生成する。
func NewLoginIDPolicy(domain string, minYear int) *LoginIDPolicy {
	return &LoginIDPolicy{
		domain:  domain,
		minYear: minYear,
		pattern: regexp.MustCompile(`^\d{10}@` + regexp.QuoteMeta(domain) + `$`),
		now:     time.Now,
	}
}

// Validate はログインIDを検証する。不正な場合は*model.APIErrorを返す。
func (p *LoginIDPolicy) Validate(loginID string) error {
	err := validation.Validate(loginID,
		validation.Required,
		validation.Match(p.pattern).Error(
			fmt.Sprintf("Invalid Login ID format. Expected: 10digits@%s", p.domain),
		),
	)
	if err != nil {
		return model.NewInvalidLoginIDError(err.Error())
	}

	if err := validation.Validate(loginID, validation.By(p.yearInWindow)); err != nil {
		return model.NewInvalidLoginIDError(err.Error())
	}
	return nil
}

// yearInWindow は先頭4桁の年度が [minYear, 今年+1] に収まるかを確認する。
func (p *LoginIDPolicy) yearInWindow(value any) error {
	s, _ := value.(string)
	maxYear := p.now().Year() + 1
	outOfRange := fmt.Errorf(
		"Invalid year in Login ID. Year must be between %d and %d.", p.minYear, maxYear,
	)

	if len(s) < 4 {
		return outOfRange
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil || year < p.minYear || year > maxYear {
		return outOfRange
	}
	return nil
}
