package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret-key-for-unit-tests"
	testUserID = "00000000-0000-0000-0000-000000000001"
	testIssuer = "stock-ledger-test"
)

func TestGenerateAndParse_ConRole(t *testing.T) {
	tok, err := Generate(testSecret, testUserID, RoleBodeguero, testIssuer, 60)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	userID, role, err := Parse(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, testUserID, userID)
	assert.Equal(t, RoleBodeguero, role)
}

func TestParse_TokenExpirado(t *testing.T) {
	tok, err := Generate(testSecret, testUserID, RoleAdmin, testIssuer, -1)
	require.NoError(t, err)

	_, _, err = Parse(testSecret, tok)
	assert.Error(t, err, "token expirado debe retornar error")
}

func TestParse_SecretIncorrecto(t *testing.T) {
	tok, err := Generate(testSecret, testUserID, RoleAdmin, testIssuer, 60)
	require.NoError(t, err)

	_, _, err = Parse("otro-secret-completamente-distinto", tok)
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := Generate("", testUserID, RoleAdmin, testIssuer, 60)
	assert.Error(t, err)

	_, _, err = Parse("", "x.y.z")
	assert.Error(t, err)
}
