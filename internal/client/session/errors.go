package session

import "errors"

var (
	// ErrNotAuthenticated нет сохраненной сессии, нужен login
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionExpired refresh не удался, сессия завершена.
	// Все ожидающие вызовы получают одну и ту же ошибку.
	ErrSessionExpired = errors.New("session expired, please login again")
)
