package core

// utoa64 formats an unsigned integer without pulling fmt into the firmware image
func utoa64(n uint64) string {
	if n == 0 {
		return "0"
	}

	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// FormatMicros renders a microsecond count with the largest unit that keeps it exact,
// e.g. 1500 -> "1500us", 2000 -> "2ms", 3000000 -> "3s".
func FormatMicros(us uint64) string {
	switch {
	case us != 0 && us%1000000 == 0:
		return utoa64(us/1000000) + "s"
	case us != 0 && us%1000 == 0:
		return utoa64(us/1000) + "ms"
	default:
		return utoa64(us) + "us"
	}
}
