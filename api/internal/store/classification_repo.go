package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"smartseg/api/internal/classify"
)

type ClassificationRepo struct{ DB *sql.DB }

func NewClassificationRepo(db *sql.DB) *ClassificationRepo { return &ClassificationRepo{DB: db} }

// Find возвращает закэшированный ответ для (imageHash, model).
// Если maxAge > 0 и запись старше, считается что записи нет.
func (r *ClassificationRepo) Find(ctx context.Context, imageHash, model string, maxAge time.Duration) (classify.Result, bool, error) {
	const q = `select result_json, created_at
	           from classification_cache
	           where image_hash=$1 and model=$2`
	var (
		js []byte
		ts time.Time
	)
	err := r.DB.QueryRowContext(ctx, q, imageHash, model).Scan(&js, &ts)
	if errors.Is(err, ErrNotFound) {
		return classify.Result{}, false, nil
	}
	if err != nil {
		return classify.Result{}, false, err
	}
	if maxAge > 0 && time.Since(ts) > maxAge {
		return classify.Result{}, false, nil
	}
	var res classify.Result
	if err := json.Unmarshal(js, &res); err != nil {
		// битый кэш: просто промах
		return classify.Result{}, false, nil
	}
	return res, true, nil
}

// Upsert сохраняет ответ. PK: (image_hash, model).
func (r *ClassificationRepo) Upsert(ctx context.Context, imageHash, model string, res classify.Result) error {
	js, err := json.Marshal(res)
	if err != nil {
		return err
	}
	const q = `
insert into classification_cache(image_hash, model, result_json)
values ($1,$2,$3)
on conflict (image_hash, model)
do update set result_json=excluded.result_json, created_at=now()`
	_, err = r.DB.ExecContext(ctx, q, imageHash, model, js)
	return err
}

// PurgeOlderThan удаляет устаревшие записи кэша.
func (r *ClassificationRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	return purge(ctx, r.DB, `delete from classification_cache where created_at < $1`, olderThan)
}

func purge(ctx context.Context, db *sql.DB, q string, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	res, err := db.ExecContext(ctx, q, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
