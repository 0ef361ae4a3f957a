package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles carried in access tokens.
const (
	RolePlayer = "player"
	RoleEditor = "editor"
)

// Claims for JWT tokens.
type Claims struct {
	PlayerID uuid.UUID `json:"player_id"`
	Role     string    `json:"role"`
	jwt.RegisteredClaims
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// TokenConfig holds JWT signing configuration.
type TokenConfig struct {
	AccessSecret []byte
	AccessTTL    time.Duration // default: 1 hour
	Issuer       string
}

// Manager handles JWT token generation and validation.
type Manager struct {
	accessSecret []byte
	accessTTL    time.Duration
	issuer       string
	now          func() time.Time
}

// NewManager creates a JWT token manager.
func NewManager(cfg TokenConfig) *Manager {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 1 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "quiz-delivery"
	}

	return &Manager{
		accessSecret: cfg.AccessSecret,
		accessTTL:    cfg.AccessTTL,
		issuer:       cfg.Issuer,
		now:          time.Now,
	}
}

// GenerateAccessToken creates a short-lived access token for a player.
// An empty role defaults to RolePlayer.
func (m *Manager) GenerateAccessToken(playerID uuid.UUID, role string) (string, error) {
	if role == "" {
		role = RolePlayer
	}
	now := m.now()
	claims := Claims{
		PlayerID: playerID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   playerID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.accessSecret)
}

// ValidateAccessToken parses and validates an access token.
func (m *Manager) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.accessSecret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.PlayerID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
