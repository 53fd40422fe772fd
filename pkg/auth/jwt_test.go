package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewTokenService("secret", "karte")
	staffID := uuid.New()

	token, err := svc.Issue(staffID.String(), "佐藤", time.Minute)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "佐藤", claims.Name)

	id, ok := claims.StaffID()
	assert.True(t, ok)
	assert.Equal(t, staffID, id)
}

func TestValidateRejects(t *testing.T) {
	svc := NewTokenService("secret", "karte")

	expired, err := svc.Issue("x", "", -time.Minute)
	require.NoError(t, err)
	otherIssuer, err := NewTokenService("secret", "someone-else").Issue("x", "", time.Minute)
	require.NoError(t, err)
	otherKey, err := NewTokenService("other", "karte").Issue("x", "", time.Minute)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: "karte"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"other issuer": otherIssuer,
		"other key":    otherKey,
		"no expiry":    noExpiry,
		"garbage":      "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Validate(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestStaffIDRequiresUUIDSubject(t *testing.T) {
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "reception-desk"}}
	_, ok := c.StaffID()
	assert.False(t, ok)
}
