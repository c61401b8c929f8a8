package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mr. Suryansh Singh", "Suryansh Singh"},
		{"MRS. Anita Sharma", "Anita Sharma"},
		{"Dr.Singh", "Singh"},
		{"Miss Priya", "Priya"},
		{"Master Aarav Patel", "Aarav Patel"},
		{"Mister Unrelated", "Mister Unrelated"},
		{"Suryansh Singh", "Suryansh Singh"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, StripTitle(tc.in), tc.in)
	}
}
