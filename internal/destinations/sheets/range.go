package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// columnLetter converts a 1-based column count to its A1 letter, so the
// data range tracks the field order instead of hardcoding "I".
func columnLetter(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// rowFromRange extracts the row number from an A1 range like
// "'Events'!A12:I12", as returned in an append response.
func rowFromRange(a1 string) (int64, error) {
	ref := a1
	if i := strings.LastIndex(ref, "!"); i >= 0 {
		ref = ref[i+1:]
	}
	if i := strings.Index(ref, ":"); i >= 0 {
		ref = ref[:i]
	}

	digits := strings.TrimLeft(ref, "ABCDEFGHIJKLMNOPQRSTUVWXYZ$")
	row, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse row from range %q", a1)
	}
	return row, nil
}
