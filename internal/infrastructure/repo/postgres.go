package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/lib/pq"

	"planpay/internal/domain"
)

type PostgresPlanRepo struct {
	db *sql.DB
}

func NewPostgresPlanRepo(ctx context.Context, dsn string) (*PostgresPlanRepo, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	r := &PostgresPlanRepo{db: db}
	if err := r.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresPlanRepo) init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price BIGINT NOT NULL CHECK (price > 0),
		features TEXT NOT NULL,
		position INT NOT NULL
	);`)
	return err
}

func (r *PostgresPlanRepo) UpsertPlans(ctx context.Context, plans []domain.Plan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO plans (id,name,price,features,position)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET name=$2,price=$3,features=$4,position=$5`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, p := range plans {
		features, err := json.Marshal(p.Features)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Price, string(features), i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PostgresPlanRepo) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id,name,price,features FROM plans ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Plan
	for rows.Next() {
		var p domain.Plan
		var features string
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &features); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &p.Features); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresPlanRepo) Close() error {
	return r.db.Close()
}
