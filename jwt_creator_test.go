package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-cid-parser/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

func writeTestPrivateKey(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	path := filepath.Join(t.TempDir(), "priv.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path, key
}

var testIdentityData = models.IdentityData{
	Gender:      "male",
	DateOfBirth: time.Date(1986, time.January, 1, 0, 0, 0, 0, time.UTC),
	Province:    "江西省",
	City:        "赣州市",
	District:    "宁都县",
	Over12:      "Yes",
	Over16:      "Yes",
	Over18:      "Yes",
	Over21:      "Yes",
	Over65:      "No",
}

func TestCreatingJwt(t *testing.T) {
	keyPath, _ := writeTestPrivateKey(t)

	jc, err := NewAttestationJwtCreator(keyPath, "cid_parser", 24*time.Hour)
	require.NoError(t, err)

	createdJwt, err := jc.CreateAttestationJwt(testIdentityData)
	require.NoError(t, err)
	require.NotEmpty(t, createdJwt)
}

func TestDecodeValidateJwt(t *testing.T) {
	keyPath, key := writeTestPrivateKey(t)

	jc, err := NewAttestationJwtCreator(keyPath, "cid_parser", 24*time.Hour)
	require.NoError(t, err)

	createdJwt, err := jc.CreateAttestationJwt(testIdentityData)
	require.NoError(t, err)

	parsed, err := jwt.Parse(createdJwt, func(token *jwt.Token) (any, error) {
		require.IsType(t, &jwt.SigningMethodRSA{}, token.Method)
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	require.Equal(t, "cid_parser", claims["iss"])
	require.Equal(t, "male", claims["gender"])
	require.Equal(t, "1986-01-01", claims["dateOfBirth"])
	require.Equal(t, "1986", claims["yearOfBirth"])
	require.Equal(t, "江西省", claims["province"])
	require.Equal(t, "赣州市", claims["city"])
	require.Equal(t, "宁都县", claims["district"])
	require.Equal(t, "Yes", claims["over18"])
	require.Equal(t, "No", claims["over65"])
}

func TestJwtCreatorMissingKey(t *testing.T) {
	_, err := NewAttestationJwtCreator(filepath.Join(t.TempDir(), "missing.pem"), "cid_parser", time.Hour)
	require.Error(t, err)
}
