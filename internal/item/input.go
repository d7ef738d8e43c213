package item

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/hitoshi/campusmarket/internal/model"
)

// maxPrice はNUMERIC(12,2)に収まる価格の上限。
const maxPrice = 9999999999.99

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// CreateListingInput は出品作成のリクエスト内容。
// マルチパートフォームの値をそのまま受け取り、Validateで検証する。
type CreateListingInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
	Location    string `json:"location"`
	Phone       string `json:"phone"`
}

// MediaUpload はアップロードされた画像。
type MediaUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Validate は全フィールドを検証し、違反をまとめたエラーを返す。
func (in CreateListingInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required),
		validation.Field(&in.Description, validation.Required),
		validation.Field(&in.Price, validation.Required, validation.By(positivePrice)),
		validation.Field(&in.Category, validation.Required, validation.By(knownCategory)),
		validation.Field(&in.Condition, validation.Required, validation.By(knownCondition)),
		validation.Field(&in.Location, validation.Required),
		validation.Field(&in.Phone, validation.Required, validation.By(tenDigitPhone)),
	)
}

// normalizePhone は電話番号から空白を全て取り除く。
func normalizePhone(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// parsePrice は価格を数値に変換し、小数第2位に丸める。
func parsePrice(s string) (float64, error) {
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, errors.New("must be a number")
	}
	p = math.Round(p*100) / 100
	if p <= 0 {
		return 0, errors.New("must be a positive number")
	}
	if p > maxPrice {
		return 0, errors.New("is too large")
	}
	return p, nil
}

func positivePrice(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := parsePrice(s)
	return err
}

func knownCategory(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, ok := model.ParseCategory(s); !ok {
		return errors.New("must be one of Books, Electronics, Furniture, Stationery, Notes, Services, Other")
	}
	return nil
}

func knownCondition(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, ok := model.ParseCondition(s); !ok {
		return errors.New(`must be one of "New", "Used - Like New", "Used - Good", "Used - Fair"`)
	}
	return nil
}

func tenDigitPhone(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !phonePattern.MatchString(normalizePhone(s)) {
		return errors.New("must be exactly 10 digits")
	}
	return nil
}
