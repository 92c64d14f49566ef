package models

import "time"

// IdentityData is the fully resolved content of a validated identifier,
// ready to be signed into an attestation.
type IdentityData struct {
	Gender      string
	DateOfBirth time.Time
	Province    string
	City        string
	District    string
	Over12      string
	Over16      string
	Over18      string
	Over21      string
	Over65      string
}
