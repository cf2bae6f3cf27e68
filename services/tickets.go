package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TicketClaims ties a player identity to one room.
type TicketClaims struct {
	Room string `json:"room"`
	jwt.RegisteredClaims
}

// TicketIssuer signs and checks the player tickets handed out on create/join.
type TicketIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTicketIssuer(secret string, ttl time.Duration) *TicketIssuer {
	return &TicketIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TicketIssuer) Issue(playerID, roomCode string) (string, error) {
	now := t.now()
	claims := TicketClaims{
		Room: roomCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *TicketIssuer) Parse(tokenString string) (*TicketClaims, error) {
	var claims TicketClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("invalid ticket: %w", errors.Join(ErrForbidden, err))
	}
	if claims.Subject == "" || claims.Room == "" {
		return nil, fmt.Errorf("incomplete ticket: %w", ErrForbidden)
	}
	return &claims, nil
}
