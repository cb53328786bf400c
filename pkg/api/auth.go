package api

import "time"

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Username string `json:"username"` // username пользователя
	Email    string `json:"email"`    // email (сравнивается без учета регистра)
	Password string `json:"password"` // пароль в открытом виде (только по TLS)
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest представляет запрос на обмен refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UserProfile представляет публичный профиль пользователя
// Не содержит password hash и refresh credential
type UserProfile struct {
	ID        string    `json:"id"`         // UUID пользователя
	Username  string    `json:"username"`   // уникальный username
	Email     string    `json:"email"`      // email (lowercase)
	CreatedAt time.Time `json:"created_at"` // время создания
}

// TokenResponse представляет ответ с токенами доступа
// Одинаковая форма для register/login/refresh
type TokenResponse struct {
	AccessToken  string      `json:"access_token"`  // JWT access token
	RefreshToken string      `json:"refresh_token"` // opaque refresh token
	ExpiresAt    time.Time   `json:"expires_at"`    // срок действия access token
	User         UserProfile `json:"user"`          // профиль пользователя
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
