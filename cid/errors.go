package cid

import "fmt"

// InvalidIdentifierError reports an identifier that is not syntactically a
// 15- or 18-digit identity number.
type InvalidIdentifierError struct {
	Identifier string
	Reason     string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Identifier, e.Reason)
}

// RegionNotFoundError reports a region code that does not exist in the
// reference table.
type RegionNotFoundError struct {
	Code string
}

func (e *RegionNotFoundError) Error() string {
	return fmt.Sprintf("region code %q not found in reference table", e.Code)
}
