package order

import (
	"fmt"
	"regexp"
	"time"
)

// Order numbers look like MOM2500042: MOM prefix, two-digit year, five-digit
// per-year counter. The counter lives in the order_counter table and is
// incremented inside the order-creation transaction so numbers are gap-free.
const orderNumberPrefix = "MOM"

var orderNumberRe = regexp.MustCompile(`^MOM\d{2}\d{5}$`)

func FormatOrderNumber(now time.Time, counter int64) string {
	return fmt.Sprintf("%s%02d%05d", orderNumberPrefix, now.Year()%100, counter)
}

func ValidOrderNumber(s string) bool {
	return orderNumberRe.MatchString(s)
}
