package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/accountman/internal/model"
)

// PostgresAddressRepo はPostgreSQLを使用した住所リポジトリ。
type PostgresAddressRepo struct {
	db *sql.DB
}

// NewPostgresAddressRepo はPostgresAddressRepoを生成する。
func NewPostgresAddressRepo(db *sql.DB) *PostgresAddressRepo {
	return &PostgresAddressRepo{db: db}
}

// FindByID は指定IDの住所を取得する。見つからない場合はnilを返す。
func (r *PostgresAddressRepo) FindByID(ctx context.Context, id string) (*model.Address, error) {
	address := &model.Address{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, street, city, state, zip_code, country, created_at, updated_at
		 FROM addresses WHERE id = $1`,
		id,
	).Scan(
		&address.ID, &address.Street, &address.City, &address.State,
		&address.ZipCode, &address.Country, &address.CreatedAt, &address.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find address by ID: %w", err)
	}

	return address, nil
}

// Create は住所を作成する。作成フックは全フィールド空のまま作成する。
func (r *PostgresAddressRepo) Create(ctx context.Context, address *model.Address) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO addresses (id, street, city, state, zip_code, country, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		address.ID, address.Street, address.City, address.State,
		address.ZipCode, address.Country, address.CreatedAt, address.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert address: %w", err)
	}
	return nil
}

// Update は住所を更新する。
func (r *PostgresAddressRepo) Update(ctx context.Context, address *model.Address) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE addresses
		 SET street = $2, city = $3, state = $4, zip_code = $5, country = $6, updated_at = now()
		 WHERE id = $1`,
		address.ID, address.Street, address.City, address.State,
		address.ZipCode, address.Country,
	)
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewAddressNotFoundError(address.ID)
	}
	return nil
}

// DeleteByID は指定IDの住所を削除する。
// ユーザーからの参照が残っている場合はFK制約違反となる。
func (r *PostgresAddressRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM addresses WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewAddressNotFoundError(id)
	}
	return nil
}

// List は市区町村または国名の部分一致で住所を検索する。
func (r *PostgresAddressRepo) List(ctx context.Context, search string) ([]*model.Address, error) {
	query := `SELECT id, street, city, state, zip_code, country, created_at, updated_at
		 FROM addresses`
	var args []interface{}

	if search != "" {
		query += ` WHERE city ILIKE $1 OR country ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []*model.Address
	for rows.Next() {
		address := &model.Address{}
		if err := rows.Scan(
			&address.ID, &address.Street, &address.City, &address.State,
			&address.ZipCode, &address.Country, &address.CreatedAt, &address.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, address)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate addresses: %w", err)
	}

	return addresses, nil
}

// compile-time interface check
var _ AddressRepository = (*PostgresAddressRepo)(nil)
