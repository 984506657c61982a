package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammedbilalns/LogIt-sub002/internal/config"
	"github.com/mohammedbilalns/LogIt-sub002/internal/database"
	"github.com/mohammedbilalns/LogIt-sub002/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for bad, expired or malformed credentials.
// A connection presenting one is refused at the handshake.
var ErrInvalidToken = errors.New("invalid token")

// Service resolves the session credential presented at the WebSocket
// handshake (and on REST commands) to a user. Issuing credentials is the
// account layer's job, not this one's.
type Service struct {
	db  database.UserRepository
	cfg *config.Config
}

func NewService(db database.UserRepository, cfg *config.Config) *Service {
	return &Service{
		db:  db,
		cfg: cfg,
	}
}

func (s *Service) ValidateToken(tokenString string) (*jwt.MapClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.cfg.JWT.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

func (s *Service) ResolveUserFromToken(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	userID, ok := (*claims)["user_id"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("%w: missing user id claim", ErrInvalidToken)
	}

	return s.db.GetUserByID(ctx, userID)
}
