package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/campusmarket/internal/model"
)

const listingColumns = `id, owner_id, title, description, price, category, condition,
		        location, phone, media, is_sold, buyer_id, sold_at, created_at`

// PostgresListingRepo はPostgreSQLを使用した出品リポジトリ。
type PostgresListingRepo struct {
	db *sql.DB
}

// NewPostgresListingRepo はPostgresListingRepoを生成する。
func NewPostgresListingRepo(db *sql.DB) *PostgresListingRepo {
	return &PostgresListingRepo{db: db}
}

// Create は出品を作成する。
func (r *PostgresListingRepo) Create(ctx context.Context, l *model.Listing) error {
	media := l.Media
	if media == nil {
		media = []string{}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO listings (id, owner_id, title, description, price, category, condition,
		                       location, phone, media, is_sold, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, $11)`,
		l.ID, l.OwnerID, l.Title, l.Description, l.Price, string(l.Category), string(l.Condition),
		l.Location, l.Phone, pq.Array(media), l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// FindByID は指定IDの出品を取得する。
// UUIDとして不正なIDの場合もnilを返す。
func (r *PostgresListingRepo) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	l, err := scanListing(r.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+`
		 FROM listings WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	return l, nil
}

// ListActive は販売中の出品をcreated_at降順で取得する。
func (r *PostgresListingRepo) ListActive(ctx context.Context) ([]*model.Listing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingColumns+`
		 FROM listings
		 WHERE is_sold = false
		 ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active listings: %w", err)
	}
	defer rows.Close()

	var listings []*model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}
	return listings, nil
}

// MarkSold は出品を販売済みにする。
// 販売中であることと購入者が出品者でないことを同じUPDATE文の条件で確認するため、
// 同時に複数の確定要求が来ても成功するのは1件だけになる。
func (r *PostgresListingRepo) MarkSold(ctx context.Context, id, buyerID string, soldAt time.Time) (*model.Listing, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	l, err := scanListing(r.db.QueryRowContext(ctx,
		`UPDATE listings
		 SET is_sold = true, buyer_id = $2, sold_at = $3
		 WHERE id = $1 AND is_sold = false AND owner_id <> $2
		 RETURNING `+listingColumns,
		id, buyerID, soldAt,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark listing sold: %w", err)
	}
	return l, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*model.Listing, error) {
	l := &model.Listing{}
	var category, condition string
	var buyerID sql.NullString
	var soldAt sql.NullTime

	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Price, &category, &condition,
		&l.Location, &l.Phone, pq.Array(&l.Media), &l.IsSold, &buyerID, &soldAt, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Category = model.Category(category)
	l.Condition = model.Condition(condition)
	if l.Media == nil {
		l.Media = []string{}
	}
	if buyerID.Valid {
		l.BuyerID = &buyerID.String
	}
	if soldAt.Valid {
		t := soldAt.Time
		l.SoldAt = &t
	}
	return l, nil
}

// compile-time interface check
var _ ListingRepository = (*PostgresListingRepo)(nil)
