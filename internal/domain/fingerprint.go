package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	fpSep    = "\x1f"
	fpAbsent = "\x00"
)

// Fingerprint hashes the fields that make two bookmakers' outcomes the same
// bet. Absent description and point are encoded distinctly from "" and 0.
func Fingerprint(name string, description *string, point *float64, betType BetType, eventID string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(name)))
	b.WriteString(fpSep)
	if description != nil {
		b.WriteString(*description)
	} else {
		b.WriteString(fpAbsent)
	}
	b.WriteString(fpSep)
	if point != nil {
		b.WriteString(FormatPoint(*point))
	} else {
		b.WriteString(fpAbsent)
	}
	b.WriteString(fpSep)
	b.WriteString(string(betType))
	b.WriteString(fpSep)
	b.WriteString(eventID)

	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}

// FormatPoint renders a point in its shortest form so 2 and 2.0 agree.
func FormatPoint(p float64) string {
	if p == 0 {
		p = 0 // folds -0
	}
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// ValidPrice reports whether p is usable decimal odds.
func ValidPrice(p float64) bool {
	return p > 1 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
