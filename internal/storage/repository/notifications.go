package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rotaplus/driver-billing/internal/models"
)

// HasMarkerOnDay проверяет, отправлялось ли в указанный день уведомление
// данного типа этому водителю. День задает вызывающая сторона, чтобы
// дедупликация считалась от времени прохода, а не от часов базы.
func (s *Storage) HasMarkerOnDay(ctx context.Context, userUID, markerType string, day time.Time) (bool, error) {
	const op = "storage.HasMarkerOnDay"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM notification_markers
			      WHERE user_uid = $1 AND type = $2 AND created_at::DATE = $3::DATE
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userUID, markerType, day).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// CreateMarker сохраняет запись дедупликации уведомления и возвращает её ID.
func (s *Storage) CreateMarker(ctx context.Context, marker models.NotificationMarker) (int, error) {
	const op = "storage.CreateMarker"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO notification_markers (user_uid, type, title, message)
			  VALUES ($1, $2, $3, $4) RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		marker.UserUID, marker.Type, marker.Title, marker.Message).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}
