package core

// itoa converts an integer to a string without the fmt package
func itoa(n int) string {
	return itoa64(int64(n))
}

// itoa64 formats n in decimal; int is only 16 bits wide on AVR
func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	neg := n < 0
	u := uint64(n)
	if neg {
		u = uint64(-n)
	}
	for u > 0 {
		pos--
		buf[pos] = byte('0' + u%10)
		u /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	return itoa64(int64(n))
}

// quote wraps s in double quotes, escaping quotes and backslashes for JSON
func quote(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(append(out, '"'))
}
