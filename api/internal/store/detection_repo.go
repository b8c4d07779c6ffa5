package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Detection: строка истории запросов.
type Detection struct {
	RequestID       string    `json:"request_id"`
	CreatedAt       time.Time `json:"created_at"`
	Source          string    `json:"source"`
	ImageHash       string    `json:"image_hash"`
	WasteType       string    `json:"waste_type"`
	ModelUsed       string    `json:"model_used"`
	DetectedObjects []string  `json:"detected_objects"`
	UploadName      string    `json:"upload_name"`
	OutputName      string    `json:"output_name"`
}

type DetectionRepo struct{ DB *sql.DB }

func NewDetectionRepo(db *sql.DB) *DetectionRepo { return &DetectionRepo{DB: db} }

func (r *DetectionRepo) Insert(ctx context.Context, d Detection) error {
	objs := d.DetectedObjects
	if objs == nil {
		objs = []string{}
	}
	js, err := json.Marshal(objs)
	if err != nil {
		return err
	}
	const q = `
insert into detections (
  request_id, source, image_hash, waste_type, model_used,
  detected_objects, upload_name, output_name
) values ($1,$2,$3,$4,$5,$6,$7,$8)
on conflict (request_id) do nothing`
	_, err = r.DB.ExecContext(ctx, q,
		d.RequestID, d.Source, d.ImageHash, nullString(d.WasteType), nullString(d.ModelUsed),
		js, d.UploadName, nullString(d.OutputName),
	)
	return err
}

// Recent возвращает последние limit записей, новые первыми.
func (r *DetectionRepo) Recent(ctx context.Context, limit int) ([]Detection, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
select request_id::text, created_at, source, image_hash,
       coalesce(waste_type,''), coalesce(model_used,''),
       detected_objects, upload_name, coalesce(output_name,'')
from detections
order by created_at desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Detection
	for rows.Next() {
		var (
			d  Detection
			js []byte
		)
		if err := rows.Scan(&d.RequestID, &d.CreatedAt, &d.Source, &d.ImageHash,
			&d.WasteType, &d.ModelUsed, &js, &d.UploadName, &d.OutputName); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(js, &d.DetectedObjects); err != nil {
			d.DetectedObjects = nil
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// PurgeOlderThan удаляет старую историю.
func (r *DetectionRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	return purge(ctx, r.DB, `delete from detections where created_at < $1`, olderThan)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
