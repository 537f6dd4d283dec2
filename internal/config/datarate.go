package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var dataRatePattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)([kKMGT]i?)?(b/s|bps|B/s|Bps)?$`)

// ParseDataRate converts a rate such as "50Mb/s", "11Mbps", "500kb/s" or
// "1MiB/s" to bits per second. Lower case b means bits and upper case B
// means bytes; an "i" after the prefix selects powers of 1024. A bare
// number is bits per second.
func ParseDataRate(input string) (uint64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(input), " ", "")
	if s == "" {
		return 0, errors.New("data rate is empty")
	}
	match := dataRatePattern.FindStringSubmatch(s)
	if match == nil {
		return 0, fmt.Errorf("invalid data rate %q", input)
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid data rate %q", input)
	}

	prefix := match[2]
	base := 1000.0
	if strings.HasSuffix(prefix, "i") {
		base = 1024
		prefix = strings.TrimSuffix(prefix, "i")
	}
	switch prefix {
	case "":
	case "k", "K":
		value *= base
	case "M":
		value *= base * base
	case "G":
		value *= base * base * base
	case "T":
		value *= base * base * base * base
	}
	if unit := match[3]; unit == "B/s" || unit == "Bps" {
		value *= 8
	}
	if value < 1 {
		return 0, fmt.Errorf("data rate %q is below 1 bit/s", input)
	}
	return uint64(value), nil
}
