package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"field-service/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload the identity service puts into access tokens.
type Claims struct {
	UserID uuid.UUID
	Role   model.Role
}

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

func (p *Parser) Parse(token string) (*Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	rawSub, ok := mapClaims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(rawSub)
	if err != nil {
		return nil, ErrInvalidToken
	}

	rawRole, ok := mapClaims["role"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	role := model.Role(rawRole)
	switch role {
	case model.RoleCustomer, model.RoleTechnician, model.RoleManager:
	default:
		return nil, ErrInvalidToken
	}

	return &Claims{UserID: userID, Role: role}, nil
}
