package format

import (
	"strconv"
	"strings"
	"time"
)

var indonesianMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// FormatIDR renders an amount in whole rupiah, e.g. "Rp 150.000".
func FormatIDR(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return sign + "Rp " + b.String()
}

// FormatDate renders a calendar date as "5 Maret 2024". The date is read
// in UTC, which is how date-only columns are stored.
func FormatDate(t time.Time) string {
	y, m, d := t.UTC().Date()
	return strconv.Itoa(d) + " " + indonesianMonths[m-1] + " " + strconv.Itoa(y)
}
