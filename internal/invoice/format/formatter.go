package format

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	randPadRe = regexp.MustCompile(`\{RAND(\d+)\}`)
)

// DefaultInvoiceNumberTemplate yields numbers such as 25013147:
// two digit year, month, day, then a random 00-99 suffix.
const DefaultInvoiceNumberTemplate = "{YY}{MM}{DD}{RAND2}"

// FormatInvoiceNumber formats a human-readable invoice number
// based on a template, issue time, and a suffix value.
//
// This function is PURE:
// - No side effects
// - No DB access
// - Fully deterministic
func FormatInvoiceNumber(
	template string,
	issuedAt time.Time,
	suffix int,
) (string, error) {

	if template == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}

	if suffix < 0 {
		return "", fmt.Errorf("invalid invoice suffix: %d", suffix)
	}

	out := template

	// Date tokens
	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", issuedAt.Format("02"))

	out = strings.ReplaceAll(out, "{RAND}", strconv.Itoa(suffix))

	// Padded suffix
	out = randPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := randPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}

		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}

		return fmt.Sprintf("%0*d", width, suffix%pow10(width))
	})

	// Final safety check: unresolved tokens
	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in invoice format: %s", out)
	}

	return out, nil
}

// SuffixWidth reports the digit width of the widest {RANDn} token, or 0.
func SuffixWidth(template string) int {
	width := 0
	for _, match := range randPadRe.FindAllStringSubmatch(template, -1) {
		if n, err := strconv.Atoi(match[1]); err == nil && n > width {
			width = n
		}
	}
	return width
}

func pow10(n int) int {
	v := 1
	for i := 0; i < n && v < 1e9; i++ {
		v *= 10
	}
	return v
}

// Generator produces invoice numbers from a template and a random source.
type Generator struct {
	template string
	intn     func(n int) int
}

// NewGenerator builds a Generator. A nil intn uses math/rand/v2.
func NewGenerator(template string, intn func(n int) int) *Generator {
	if strings.TrimSpace(template) == "" {
		template = DefaultInvoiceNumberTemplate
	}
	if intn == nil {
		intn = rand.IntN
	}
	return &Generator{template: template, intn: intn}
}

// Generate returns a number like 25013147 for 31 Jan 2025. Numbers are not
// guaranteed unique.
func (g *Generator) Generate(now time.Time) (string, error) {
	width := SuffixWidth(g.template)
	if width == 0 {
		width = 2
	}
	return FormatInvoiceNumber(g.template, now, g.intn(pow10(width)))
}
