package storage

import "errors"

// ErrAuthNotFound возвращается, когда сохраненной сессии нет
var ErrAuthNotFound = errors.New("auth data not found")
