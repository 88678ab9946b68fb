package fields

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Rule recognises one field: a Thai label, a colon/whitespace separator and
// a value pattern.
type Rule struct {
	Field   Field
	Label   string
	pattern *regexp.Regexp
}

// NewRule compiles a rule whose value must match valuePattern. Label and
// value are separated by colons and any Unicode spaces, NBSP included.
func NewRule(field Field, label, valuePattern string) Rule {
	label = Normalize(label)
	return Rule{
		Field:   field,
		Label:   label,
		pattern: regexp.MustCompile(regexp.QuoteMeta(label) + `[:\s\p{Zs}]+(` + valuePattern + `)`),
	}
}

// Match returns the first trimmed value for the rule in text.
func (r Rule) Match(text string) (string, bool) {
	m := r.pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	if v == "" {
		return "", false
	}
	return v, true
}

// DefaultRules are the slip labels in record order.
func DefaultRules() []Rule {
	return []Rule{
		NewRule(FromAccount, "จากบัญชี", `[\d\-]+`),
		NewRule(ToAccount, "ไปยังบัญชี", `[\d\-]+`),
		NewRule(SenderName, "ชื่อผู้โอน", `.+`),
		NewRule(ReceiverName, "ชื่อผู้รับ", `.+`),
		NewRule(BankName, "ธนาคาร", `.+`),
		NewRule(Date, "วันที่", `[\d/]+`),
		NewRule(Time, "เวลา", `[\d:]+`),
		NewRule(Amount, "จำนวนเงิน", `[\d,\.]+`),
	}
}

// Extractor applies its rules independently to the same text. It is
// immutable and safe for concurrent use.
type Extractor struct {
	rules []Rule
}

// NewExtractor uses rules, or DefaultRules when none are given.
func NewExtractor(rules ...Rule) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Extractor{rules: append([]Rule(nil), rules...)}
}

var defaultExtractor = NewExtractor()

// Extract parses text with the default rules.
func Extract(text string) Record {
	return defaultExtractor.Extract(text)
}

// Extract never fails: a rule that does not match leaves its field nil.
func (e *Extractor) Extract(text string) Record {
	rec := Record{RawText: text}
	normalized := Normalize(text)
	for _, rule := range e.rules {
		if v, ok := rule.Match(normalized); ok {
			rec.Set(rule.Field, v)
		}
	}
	return rec
}

var ocrFixups = strings.NewReplacer(
	// nikhahit + sara aa, as OCR often emits it, is sara am
	"\u0e4d\u0e32", "\u0e33",
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\ufeff", "",
)

// Normalize prepares OCR text for matching: NFC composition, common Thai OCR
// artefacts repaired, zero-width characters dropped and Thai digits folded
// to ASCII.
func Normalize(text string) string {
	text = ocrFixups.Replace(norm.NFC.String(text))
	return strings.Map(func(r rune) rune {
		if r >= '๐' && r <= '๙' {
			return '0' + (r - '๐')
		}
		return r
	}, text)
}
