package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
	ErrWrongMatch   = errors.New("token was issued for a different match")
)

// Claims identifies a player seat in one match.
type Claims struct {
	PlayerID string `json:"player_id"`
	MatchID  string `json:"match_id"`
	jwt.RegisteredClaims
}

// JWTManager handles token creation and validation.
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a JWTManager with the given secret. Tokens outlive
// the longest possible match with its cleanup window.
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		expiry: 4 * time.Hour,
	}
}

// GenerateToken creates a player token bound to matchID.
func (m *JWTManager) GenerateToken(playerID, matchID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		PlayerID: playerID,
		MatchID:  matchID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   playerID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT string, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.PlayerID == "" || claims.MatchID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateForMatch validates tokenStr and checks it belongs to matchID.
func (m *JWTManager) ValidateForMatch(tokenStr, matchID string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}
	claims, err := m.ValidateToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.MatchID != matchID {
		return nil, ErrWrongMatch
	}
	return claims, nil
}
