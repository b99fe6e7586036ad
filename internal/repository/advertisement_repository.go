package repository

import (
	"context"
	"fmt"

	"internmatch/internal/database"
	"internmatch/internal/domain/advertisement"
)

type AdvertisementRepository interface {
	ListActive(ctx context.Context) ([]advertisement.Advertisement, error)
}

type PostgresAdvertisementRepository struct {
	db database.DB
}

func NewPostgresAdvertisementRepository(db database.DB) *PostgresAdvertisementRepository {
	return &PostgresAdvertisementRepository{db: db}
}

func (r *PostgresAdvertisementRepository) ListActive(ctx context.Context) ([]advertisement.Advertisement, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, image_url, target_url
		 FROM advertisements
		 WHERE is_active
		 ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list advertisements: %w", err)
	}
	defer rows.Close()

	out := make([]advertisement.Advertisement, 0)
	for rows.Next() {
		var ad advertisement.Advertisement
		if err := rows.Scan(&ad.ID, &ad.Title, &ad.ImageURL, &ad.TargetURL); err != nil {
			return nil, fmt.Errorf("scan advertisement: %w", err)
		}
		out = append(out, ad)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list advertisements: %w", err)
	}
	return out, nil
}
