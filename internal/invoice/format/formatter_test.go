package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatIDR(t *testing.T) {
	cases := map[int64]string{
		0:          "Rp 0",
		500:        "Rp 500",
		5000:       "Rp 5.000",
		150000:     "Rp 150.000",
		1250000:    "Rp 1.250.000",
		-75000:     "-Rp 75.000",
		1000000000: "Rp 1.000.000.000",
	}
	for amount, want := range cases {
		assert.Equal(t, want, FormatIDR(amount), "amount %d", amount)
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "5 Maret 2024", FormatDate(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "31 Desember 2023", FormatDate(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)))
}
