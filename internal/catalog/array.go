package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIntArray reads a Postgres array literal such as "{2,0,1}".
func ParseIntArray(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, fmt.Errorf("bad array literal %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []int{}, nil
	}
	parts := strings.Split(body, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad array literal %q: %w", s, err)
		}
		out[i] = n
	}
	return out, nil
}

// FormatIntArray writes vals as a Postgres array literal.
func FormatIntArray[T ~int | ~uint16](vals []T) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(v)))
	}
	b.WriteByte('}')
	return b.String()
}
