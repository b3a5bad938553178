package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-service/internal/model"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParse(t *testing.T) {
	userID := uuid.New()
	parser := NewParser("test-secret")
	token := signToken(t, "test-secret", jwt.MapClaims{
		"sub":  userID.String(),
		"role": "TECHNICIAN",
	})

	claims, err := parser.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, model.RoleTechnician, claims.Role)
}

func TestParse_WrongSecret(t *testing.T) {
	parser := NewParser("test-secret")
	token := signToken(t, "other-secret", jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": "CUSTOMER",
	})

	_, err := parser.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_UnknownRole(t *testing.T) {
	parser := NewParser("test-secret")
	token := signToken(t, "test-secret", jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": "SUPERUSER",
	})

	_, err := parser.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_MissingSubject(t *testing.T) {
	parser := NewParser("test-secret")
	token := signToken(t, "test-secret", jwt.MapClaims{
		"role": "CUSTOMER",
	})

	_, err := parser.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
