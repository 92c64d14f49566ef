// Package cid parses Chinese resident identity numbers (GB 11643): it
// validates the ISO 7064 MOD 11-2 check digit and extracts the gender,
// birthdate and administrative region encoded in the digits. Both the
// current 18-digit and the legacy 15-digit format are supported.
package cid

import (
	"fmt"
	"log/slog"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

const (
	// LengthModern is the length of an 18-digit identifier with check digit.
	LengthModern = 18
	// LengthLegacy is the length of a pre-1999 identifier without check digit.
	LengthLegacy = 15
)

// Weights for positions 0-16 of an 18-digit identifier, per ISO 7064:1983 MOD 11-2.
var checksumWeights = [17]int{7, 9, 10, 5, 8, 4, 2, 1, 6, 3, 7, 9, 10, 5, 8, 4, 2}

// checkCharacters maps (weighted sum mod 11) to the expected check character.
const checkCharacters = "10X98765432"

// CheckIdentifier verifies that the identifier is syntactically well
// formed: 15 decimal digits, or 17 decimal digits followed by a digit or
// an uppercase 'X'. It returns an *InvalidIdentifierError otherwise.
//
// Every public operation in this package starts with this check so that
// malformed input surfaces as one uniform error kind instead of leaking
// slice or conversion failures.
func CheckIdentifier(id string) error {
	switch len(id) {
	case LengthLegacy:
		for i := 0; i < LengthLegacy; i++ {
			if !isDigit(id[i]) {
				return &InvalidIdentifierError{Identifier: id, Reason: fmt.Sprintf("non-digit character at position %d", i)}
			}
		}
		return nil
	case LengthModern:
		for i := 0; i < LengthModern-1; i++ {
			if !isDigit(id[i]) {
				return &InvalidIdentifierError{Identifier: id, Reason: fmt.Sprintf("non-digit character at position %d", i)}
			}
		}
		if last := id[LengthModern-1]; !isDigit(last) && last != 'X' {
			return &InvalidIdentifierError{Identifier: id, Reason: "check character must be a digit or 'X'"}
		}
		return nil
	default:
		return &InvalidIdentifierError{Identifier: id, Reason: fmt.Sprintf("length must be %d or %d, got %d", LengthLegacy, LengthModern, len(id))}
	}
}

// IsValidCid reports whether the identifier carries a correct check digit.
//
// Legacy 15-digit identifiers have no check digit, so they are treated as
// trivially valid; this is logged as unverifiable rather than silently
// accepted. Syntactically malformed input is reported as invalid.
func IsValidCid(id string) bool {
	if err := CheckIdentifier(id); err != nil {
		return false
	}
	if len(id) < LengthModern {
		slog.Warn("legacy identifier carries no check digit, accepting as unverifiable")
		return true
	}
	var sum int
	for i, w := range checksumWeights {
		sum += int(id[i]-'0') * w
	}
	return checkCharacters[sum%11] == id[LengthModern-1]
}

// ExtractGender returns the gender encoded in the sequence digit: index 16
// for the 18-digit format, index 14 for the legacy format. Odd means male.
func ExtractGender(id string) (Gender, error) {
	if err := CheckIdentifier(id); err != nil {
		return "", err
	}
	g := id[14]
	if len(id) == LengthModern {
		g = id[16]
	}
	if (g-'0')%2 == 1 {
		return GenderMale, nil
	}
	return GenderFemale, nil
}

// ExtractBirthday returns the embedded birthdate as a YYYY-MM-DD string.
// Legacy identifiers encode the year with two digits, which are taken to
// mean 19xx. The date fields are copied verbatim: a month of "13" passes
// through unchecked. Use Parser with WithStrictDates for calendar
// validation.
func ExtractBirthday(id string) (string, error) {
	if err := CheckIdentifier(id); err != nil {
		return "", err
	}
	if len(id) == LengthModern {
		return fmt.Sprintf("%s-%s-%s", id[6:10], id[10:12], id[12:14]), nil
	}
	return fmt.Sprintf("19%s-%s-%s", id[6:8], id[8:10], id[10:12]), nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
