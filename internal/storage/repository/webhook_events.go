package repository

import (
	"context"
	"fmt"
)

// RecordWebhookEvent фиксирует внешний ID события уведомления. Возвращает
// false, если событие уже обрабатывалось: при at-least-once доставке
// повтор не должен порождать побочных эффектов второй раз.
func (s *Storage) RecordWebhookEvent(ctx context.Context, eventID, kind string) (bool, error) {
	const op = "storage.RecordWebhookEvent"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO webhook_events (event_id, kind)
			  VALUES ($1, $2)
			  ON CONFLICT (event_id) DO NOTHING`
	result, err := s.DB.ExecContext(ctx, query, eventID, kind)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected == 1, nil
}

// DeleteWebhookEvent снимает регистрацию события. Используется, когда
// обработка после регистрации не удалась и повторная доставка должна
// пройти как свежее событие.
func (s *Storage) DeleteWebhookEvent(ctx context.Context, eventID string) error {
	const op = "storage.DeleteWebhookEvent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM webhook_events WHERE event_id = $1`
	if _, err := s.DB.ExecContext(ctx, query, eventID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
