package cid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// 360730198601011114 carries the correct check digit ('4'); the docstring
// example 360730198601011111 from the reference data does not.
const (
	testValidId      = "360730198601011114"
	testInvalidId    = "360730198601011111"
	testLegacyId     = "360730860101111"
	testValidIdWithX = "11010519491231002X"
)

func TestIsValidCid(t *testing.T) {
	t.Run("correct check digit", func(t *testing.T) {
		require.True(t, IsValidCid(testValidId))
	})

	t.Run("correct check character X", func(t *testing.T) {
		require.True(t, IsValidCid(testValidIdWithX))
	})

	t.Run("wrong check digit", func(t *testing.T) {
		require.False(t, IsValidCid(testInvalidId))
	})

	t.Run("worked example", func(t *testing.T) {
		// prefix 36073019860101111 has weighted sum 239; 239 mod 11 = 8,
		// and position 8 of the check table is '4'
		require.Equal(t, byte('4'), checkCharacters[239%11])
		require.True(t, IsValidCid("360730198601011114"))
		require.False(t, IsValidCid("360730198601011113"))
	})

	t.Run("every other check character fails", func(t *testing.T) {
		prefix := testValidId[:17]
		for _, c := range "0123456789X" {
			candidate := prefix + string(c)
			if candidate == testValidId {
				continue
			}
			require.False(t, IsValidCid(candidate), "check character %q should not validate", c)
		}
	})

	t.Run("lowercase x is rejected", func(t *testing.T) {
		require.False(t, IsValidCid(testValidIdWithX[:17]+"x"))
	})

	t.Run("legacy identifier is unconditionally valid", func(t *testing.T) {
		require.True(t, IsValidCid(testLegacyId))
	})

	t.Run("malformed input is invalid", func(t *testing.T) {
		require.False(t, IsValidCid(""))
		require.False(t, IsValidCid("12345"))
		require.False(t, IsValidCid("36073019860101111A"))
		require.False(t, IsValidCid("3607301986010111131"))
	})
}

func TestExtractGender(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want Gender
	}{
		{"18-digit odd sequence digit", testValidId, GenderMale},
		{"18-digit even sequence digit", "360730198601011121", GenderFemale},
		{"15-digit odd sequence digit", testLegacyId, GenderMale},
		{"15-digit even sequence digit", "360730860101112", GenderFemale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractGender(tt.id)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	t.Run("malformed input", func(t *testing.T) {
		_, err := ExtractGender("not-an-identifier")
		var invalidErr *InvalidIdentifierError
		require.ErrorAs(t, err, &invalidErr)
	})
}

func TestExtractBirthday(t *testing.T) {
	t.Run("18-digit format", func(t *testing.T) {
		birthday, err := ExtractBirthday(testInvalidId)
		require.NoError(t, err)
		require.Equal(t, "1986-01-01", birthday)
	})

	t.Run("15-digit format implies 19xx", func(t *testing.T) {
		birthday, err := ExtractBirthday(testLegacyId)
		require.NoError(t, err)
		require.Equal(t, "1986-01-01", birthday)
	})

	t.Run("impossible dates pass through unchecked", func(t *testing.T) {
		birthday, err := ExtractBirthday("360730198613321113")
		require.NoError(t, err)
		require.Equal(t, "1986-13-32", birthday)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := ExtractBirthday("3607301986")
		var invalidErr *InvalidIdentifierError
		require.ErrorAs(t, err, &invalidErr)
	})
}

func TestCheckIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid 18-digit", testValidId, false},
		{"valid 18-digit ending in X", testValidIdWithX, false},
		{"valid 15-digit", testLegacyId, false},
		{"empty", "", true},
		{"16 digits", "3607301986010111", true},
		{"letter in digit positions", "36073019860101111Y", true},
		{"X in a legacy identifier", "36073086010111X", true},
		{"lowercase check character", "36073019860101111x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckIdentifier(tt.id)
			if tt.wantErr {
				var invalidErr *InvalidIdentifierError
				require.ErrorAs(t, err, &invalidErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
