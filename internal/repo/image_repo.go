package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/didi/gendry/builder"

	"github.com/manualkit/manualkit/internal/model"
	"github.com/manualkit/manualkit/internal/pkg/dbutil"
	xerrors "github.com/manualkit/manualkit/internal/pkg/errors"
)

const imageTable = "manual_images"

var imageFields = []string{"id", "source", "page_number", "image_type", "complexity_level", "ocr_text", "description", "storage_ref", "created_at"}

type ImageRepo struct {
	db *sql.DB
}

func NewImageRepo(db *sql.DB) *ImageRepo {
	return &ImageRepo{db: db}
}

func (r *ImageRepo) Insert(ctx context.Context, img *model.ImageRecord) error {
	data := map[string]interface{}{
		"id":               img.ID,
		"source":           img.Source,
		"page_number":      img.PageNumber,
		"image_type":       string(img.ImageType),
		"complexity_level": img.ComplexityLevel,
		"ocr_text":         img.OCRText,
		"description":      img.Description,
		"storage_ref":      img.StorageRef,
		"created_at":       img.CreatedAt,
	}
	sqlStr, args, err := builder.BuildInsert(imageTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ImageRepo) ListAll(ctx context.Context) ([]model.ImageRecord, error) {
	sqlStr, args, err := builder.BuildSelect(imageTable, nil, imageFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var images []model.ImageRecord
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

func (r *ImageRepo) Get(ctx context.Context, id string) (*model.ImageRecord, error) {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildSelect(imageTable, where, imageFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return img, nil
}

func (r *ImageRepo) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM manual_images`
	var count int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImage(row rowScanner) (*model.ImageRecord, error) {
	var img model.ImageRecord
	var imageType string
	if err := row.Scan(&img.ID, &img.Source, &img.PageNumber, &imageType,
		&img.ComplexityLevel, &img.OCRText, &img.Description, &img.StorageRef, &img.CreatedAt); err != nil {
		return nil, err
	}
	img.ImageType = model.ImageType(imageType)
	return &img, nil
}
