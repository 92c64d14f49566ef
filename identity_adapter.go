package main

import (
	"fmt"
	"time"

	"go-cid-parser/cid"
	"go-cid-parser/models"
)

// abstract interfaces for easier testing

type IdentityParser interface {
	Parse(id string) (cid.Result, error)
	ExtractRegion(id string) (cid.Region, error)
	Region(code string) (cid.Region, error)
}

type IdentityDataConverter interface {
	ToIdentityData(result cid.Result) (models.IdentityData, error)
}

// Production implementations

type IdentityDataConverterImpl struct{}

func (IdentityDataConverterImpl) ToIdentityData(result cid.Result) (models.IdentityData, error) {
	dateOfBirth, err := time.Parse(DATE_FORMAT_CYMD, result.Birthday)
	if err != nil {
		return models.IdentityData{}, fmt.Errorf("embedded birthdate is not a calendar date: %w", err)
	}

	return models.IdentityData{
		Gender:      string(result.Gender),
		DateOfBirth: dateOfBirth,
		Province:    result.Region.Province,
		City:        result.Region.City,
		District:    result.Region.District,
		Over12:      BoolToYesNo(isOverAge(dateOfBirth, 12)),
		Over16:      BoolToYesNo(isOverAge(dateOfBirth, 16)),
		Over18:      BoolToYesNo(isOverAge(dateOfBirth, 18)),
		Over21:      BoolToYesNo(isOverAge(dateOfBirth, 21)),
		Over65:      BoolToYesNo(isOverAge(dateOfBirth, 65)),
	}, nil
}

func BoolToYesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}

func isOverAge(dateOfBirth time.Time, years int) bool {
	return !dateOfBirth.AddDate(years, 0, 0).After(time.Now())
}
