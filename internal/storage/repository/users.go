package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rotaplus/driver-billing/internal/models"
)

// GetUser возвращает профиль водителя по UID, nil — если профиль не найден.
// Хранилище профилей принадлежит основному приложению, биллинг читает
// только поля, нужные для оформления и уведомлений.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, name, phone, cpf,
			      address_street, address_number, address_city, address_state, address_zip
			  FROM users
			  WHERE uid = $1`
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var u models.User
	var phone, cpf, street, number, city, state, zip sql.NullString
	if err := row.Scan(&u.UID, &u.Email, &u.Name, &phone, &cpf,
		&street, &number, &city, &state, &zip); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u.Phone = phone.String
	u.CPF = cpf.String
	u.AddressStreet = street.String
	u.AddressNumber = number.String
	u.AddressCity = city.String
	u.AddressState = state.String
	u.AddressZip = zip.String
	return &u, nil
}
