// Package decimal parses and formats the console's fixed-point numeric
// identifiers: whole-number ids, decimal part ids ("5.47"), and the
// negative-zero-decimal form ("-.5").
/*
 * Copyright (c) 2024, Electronic Theatre Controls, Inc.
 */
package decimal

import "strconv"

// decimals is the fixed precision the console uses for the fractional
// part of a numeric id: three digits, scaled so ".4" is 400 and ".004" is 4.
const decimals = 3

// Number is a console-style numeric identifier, ordered lexicographically
// by (Whole, Decimal).
type Number struct {
	Whole   int32
	Decimal int32 // |Decimal| < 1000; sign only meaningful when Whole == 0
}

// Less reports whether n sorts before other.
func (n Number) Less(other Number) bool {
	if n.Whole != other.Whole {
		return n.Whole < other.Whole
	}
	return n.Decimal < other.Decimal
}

// Parse accepts "[-]?DIGITS(\.DIGITS)?" and "-.DIGITS". On any non-digit
// character it returns a zero Number and false, leaving no partial state
// behind (the original console-lib parser mutates its output on a bad
// decimal digit before failing; this is specified here as a bug fix).
func Parse(s string) (Number, bool) {
	if s == "" {
		return Number{}, false
	}

	dot := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			dot = i
			break
		}
	}

	if dot < 0 {
		whole, ok := parseWhole(s)
		if !ok {
			return Number{}, false
		}
		return Number{Whole: whole}, true
	}

	var (
		whole           int32
		decimalNegative bool
	)
	if dot != 0 {
		pre := s[:dot]
		if pre == "-" {
			decimalNegative = true
		} else {
			w, ok := parseWhole(pre)
			if !ok {
				return Number{}, false
			}
			whole = w
			if whole == 0 && pre[0] == '-' {
				decimalNegative = true
			}
		}
	}

	tail := s[dot+1:]
	if tail == "" {
		return Number{Whole: whole}, true
	}

	decimal, ok := parseDecimalDigits(tail)
	if !ok {
		return Number{}, false
	}
	if decimal > 0 && decimalNegative {
		decimal = -decimal
	}
	return Number{Whole: whole, Decimal: decimal}, true
}

// parseWhole parses an optional leading '-' followed by one or more digits.
func parseWhole(s string) (int32, bool) {
	if s == "" {
		return 0, false
	}
	i := 0
	if s[0] == '-' {
		i = 1
	}
	if i == len(s) {
		return 0, false
	}
	for j := i; j < len(s); j++ {
		if s[j] < '0' || s[j] > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(v), true
}

// parseDecimalDigits requires every character of tail to be a digit and
// reads the first `decimals` of them, scaled so the first digit is worth
// the highest place value. Digits past the third are discarded, matching
// the console protocol's documented precision cap.
func parseDecimalDigits(tail string) (int32, bool) {
	var (
		decimal int32
		pow     = [decimals]int32{100, 10, 1}
	)
	for i := 0; i < len(tail); i++ {
		c := tail[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		if i >= decimals {
			continue
		}
		digit := int32(c - '0')
		decimal += digit * pow[i]
	}
	return decimal, true
}

// Format renders n back into its console-style string form. The sign is
// emitted explicitly only for the Whole==0, Decimal<0 case; trailing
// zeros in the decimal part are stripped.
func Format(n Number) string {
	var out []byte
	if n.Whole == 0 && n.Decimal < 0 {
		out = append(out, '-')
	}
	out = strconv.AppendInt(out, int64(n.Whole), 10)
	if n.Decimal == 0 {
		return string(out)
	}

	d := n.Decimal
	if d < 0 {
		d = -d
	}
	digits := [decimals]byte{}
	v := d
	for i := decimals - 1; i >= 0; i-- {
		digits[i] = byte(v%10) + '0'
		v /= 10
	}
	end := decimals
	for end > 1 && digits[end-1] == '0' {
		end--
	}
	out = append(out, '.')
	out = append(out, digits[:end]...)
	return string(out)
}
