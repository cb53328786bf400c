package models

import "time"

// User представляет пользователя в системе
// Refresh credential хранится прямо в записи пользователя:
// у пользователя в любой момент есть не более одного действующего
// refresh token, новый всегда перезаписывает старый.
type User struct {
	ID                string    `db:"id" json:"id"`                         // UUID пользователя
	Username          string    `db:"username" json:"username"`             // уникальный username
	Email             string    `db:"email" json:"email"`                   // уникальный email (lowercase)
	PasswordHash      string    `db:"password_hash" json:"-"`               // bcrypt хеш пароля
	RefreshSecretHash string    `db:"refresh_secret_hash" json:"-"`         // sha256 хеш refresh token, "" если нет
	RefreshExpiresAt  time.Time `db:"refresh_expires_at" json:"-"`          // срок действия refresh token
	CreatedAt         time.Time `db:"created_at" json:"created_at"`         // время создания
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`         // время последнего обновления
}

// HasRefreshCredential сообщает, хранится ли у пользователя активный
// refresh credential. Срок действия здесь не проверяется.
func (u *User) HasRefreshCredential() bool {
	return u.RefreshSecretHash != ""
}

// Category представляет категорию задач пользователя
// Здесь нужна только для засева дефолтных категорий при регистрации,
// CRUD категорий живет в другом сервисе.
type Category struct {
	ID        string    `db:"id" json:"id"`                 // KSUID категории
	UserID    string    `db:"user_id" json:"user_id"`       // владелец
	Name      string    `db:"name" json:"name"`             // название
	Position  int       `db:"position" json:"position"`     // порядок на доске
	CreatedAt time.Time `db:"created_at" json:"created_at"` // время создания
}
