package main

import (
	"crypto/rsa"
	"go-cid-parser/models"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type JwtCreator interface {
	CreateAttestationJwt(data models.IdentityData) (jwt string, err error)
}

func NewAttestationJwtCreator(privateKeyPath string,
	issuerId string,
	validity time.Duration,
) (*DefaultJwtCreator, error) {
	keyBytes, err := os.ReadFile(privateKeyPath)

	if err != nil {
		return nil, err
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(keyBytes)

	if err != nil {
		return nil, err
	}

	return &DefaultJwtCreator{
		issuerId:   issuerId,
		privateKey: privateKey,
		validity:   validity,
	}, nil
}

type DefaultJwtCreator struct {
	privateKey *rsa.PrivateKey
	issuerId   string
	validity   time.Duration
}

const DATE_FORMAT_CYMD = "2006-01-02"
const DATE_FORMAT_YEAR = "2006"

func (jc *DefaultJwtCreator) CreateAttestationJwt(data models.IdentityData) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"iss":         jc.issuerId,
		"iat":         now.Unix(),
		"exp":         now.Add(jc.validity).Unix(),
		"gender":      data.Gender,
		"dateOfBirth": data.DateOfBirth.Format(DATE_FORMAT_CYMD),
		"yearOfBirth": data.DateOfBirth.Format(DATE_FORMAT_YEAR),
		"province":    data.Province,
		"city":        data.City,
		"district":    data.District,
		"over12":      data.Over12,
		"over16":      data.Over16,
		"over18":      data.Over18,
		"over21":      data.Over21,
		"over65":      data.Over65,
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(jc.privateKey)
}
