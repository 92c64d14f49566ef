package cid

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

//go:embed data.csv
var defaultTable []byte

// Region is the administrative division a region code resolves to.
type Region struct {
	Province string `json:"province"`
	City     string `json:"city"`
	District string `json:"district"`
}

// Result is the structured content of one identifier.
type Result struct {
	Gender   Gender `json:"gender"`
	Birthday string `json:"birthday"`
	Region   Region `json:"region"`
}

// Parser resolves region codes against a reference table loaded once at
// construction. The table is never mutated afterwards, so a single Parser
// is safe for concurrent use; lookups return value copies.
type Parser struct {
	regions     map[string]Region
	strictDates bool
	gbk         bool
}

type Option func(*Parser)

// WithStrictDates makes Parse reject identifiers whose embedded birthdate
// is not a real calendar date. Off by default: the date fields are
// normally copied through verbatim.
func WithStrictDates() Option {
	return func(p *Parser) { p.strictDates = true }
}

// WithGBK transcodes the reference table from GBK while loading.
func WithGBK() Option {
	return func(p *Parser) { p.gbk = true }
}

// NewParser builds a Parser backed by the embedded reference table.
func NewParser(opts ...Option) (*Parser, error) {
	return newParser(bytes.NewReader(defaultTable), opts)
}

// NewParserFromFile builds a Parser from an external reference table.
func NewParserFromFile(path string, opts ...Option) (*Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference table: %w", err)
	}
	defer f.Close()
	return newParser(f, opts)
}

func newParser(r io.Reader, opts []Option) (*Parser, error) {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	regions, err := loadRegionTable(r, p.gbk)
	if err != nil {
		return nil, err
	}
	p.regions = regions
	slog.Debug("region reference table loaded", "codes", len(regions))
	return p, nil
}

// ExtractRegion resolves the first 6 digits of the identifier against the
// reference table. The returned Region is a copy; mutating it does not
// affect subsequent lookups.
func (p *Parser) ExtractRegion(id string) (Region, error) {
	if err := CheckIdentifier(id); err != nil {
		return Region{}, err
	}
	return p.Region(id[:6])
}

// Region looks up a bare 6-digit region code.
func (p *Parser) Region(code string) (Region, error) {
	region, ok := p.regions[code]
	if !ok {
		return Region{}, &RegionNotFoundError{Code: code}
	}
	return region, nil
}

// Parse extracts gender, birthday and region in one call. It does not
// validate the check digit; callers wanting that invoke IsValidCid
// separately.
func (p *Parser) Parse(id string) (Result, error) {
	gender, err := ExtractGender(id)
	if err != nil {
		return Result{}, err
	}

	birthday, err := ExtractBirthday(id)
	if err != nil {
		return Result{}, err
	}
	if p.strictDates {
		if _, err := time.Parse("2006-01-02", birthday); err != nil {
			return Result{}, &InvalidIdentifierError{Identifier: id, Reason: fmt.Sprintf("embedded birthdate %s is not a calendar date", birthday)}
		}
	}

	region, err := p.ExtractRegion(id)
	if err != nil {
		return Result{}, err
	}

	return Result{Gender: gender, Birthday: birthday, Region: region}, nil
}
