// Package token issues and validates the credentials used by TaskDeck:
// signed short-lived JWT access tokens and opaque long-lived refresh
// secrets. The issuer is stateless; everything it needs comes from Config.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/andsokolov/taskdeck/internal/models"
)

// ErrNoSigningSecret возвращается из NewIssuer, если секрет подписи не
// задан. Это ошибка конфигурации: проверяем один раз на старте,
// а не на каждом запросе.
var ErrNoSigningSecret = errors.New("token: signing secret is not configured")

// refreshSecretBytes — длина refresh token в байтах до кодирования.
// 32 байта = 256 бит энтропии.
const refreshSecretBytes = 32

// Claims представляет JWT claims для access token
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// Config содержит конфигурацию для выпуска токенов
type Config struct {
	Secret          []byte        // секрет подписи HS256
	Issuer          string        // claim iss
	Audience        string        // claim aud
	AccessTokenTTL  time.Duration // время жизни access token
	RefreshTokenTTL time.Duration // время жизни refresh token
}

// Issuer выпускает access и refresh токены
type Issuer struct {
	cfg Config
}

// NewIssuer создает Issuer. Пустой секрет — фатальная ошибка.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrNoSigningSecret
	}
	return &Issuer{cfg: cfg}, nil
}

// IssueAccessToken создает подписанный JWT access token для пользователя.
// В claims попадают id, username, email и свежий jti; iss/aud/exp берутся
// из конфигурации.
func (i *Issuer) IssueAccessToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(i.cfg.AccessTokenTTL)

	claims := Claims{
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(i.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateAccessToken валидирует и парсит JWT access token
func (i *Issuer) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.cfg.Secret, nil
	}, jwt.WithIssuer(i.cfg.Issuer), jwt.WithAudience(i.cfg.Audience))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// IssueRefreshSecret создает новый случайный refresh token.
// Значение непредсказуемо и на практике никогда не повторяется.
func (i *Issuer) IssueRefreshSecret() (string, error) {
	secretBytes := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}

	return base64.URLEncoding.EncodeToString(secretBytes), nil
}

// RefreshExpiry возвращает срок действия нового refresh token
func (i *Issuer) RefreshExpiry() time.Time {
	return time.Now().Add(i.cfg.RefreshTokenTTL)
}

// Digest хеширует refresh token с использованием SHA256.
// Детерминированный хеш: в хранилище лежит только digest, по нему же
// идет точный поиск и conditional update при ротации.
func Digest(secret string) string {
	hash := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(hash[:])
}
