package invoiceparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/finance-overview/internal/domain"
)

var swedishMonths = map[string]time.Month{
	"januari": time.January, "februari": time.February, "mars": time.March,
	"april": time.April, "maj": time.May, "juni": time.June, "juli": time.July,
	"augusti": time.August, "september": time.September, "oktober": time.October,
	"november": time.November, "december": time.December,
}

// issuerRule extracts fields from the text of a known issuer's invoice.
type issuerRule struct {
	name     string
	marker   string
	amount   *regexp.Regexp
	bankgiro *regexp.Regexp
	ocr      *regexp.Regexp
	due      *regexp.Regexp
	dueDate  func(m []string) domain.Date
}

func isoDue(m []string) domain.Date {
	d, err := domain.ParseDate(m[1])
	if err != nil {
		return domain.Date{}
	}
	return d
}

var issuerRules = []issuerRule{
	{
		name:     "American Express",
		marker:   "www.americanexpress.se",
		amount:   regexp.MustCompile(`Fakturans\s+saldo\s+(\d{1,3}(?:\.\d{3})*,\d{2})`),
		bankgiro: regexp.MustCompile(`Bankgiro:\s*(\d{4}-\d{4})`),
		ocr:      regexp.MustCompile(`OCR:\s*(\d{10,20})`),
		due:      regexp.MustCompile(`oss\s+tillhanda\s+den\s+(\d{2})\.(\d{2})\.(\d{2})`),
		dueDate: func(m []string) domain.Date {
			day, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			year, _ := strconv.Atoi(m[3])
			return domain.NewDate(2000+year, time.Month(month), day)
		},
	},
	{
		name:     "Länsförsäkringar",
		marker:   "Länsförsäkringar",
		amount:   regexp.MustCompile(`Summa\s+att\s+betala\s+(\d{1,3}(?:\s?\d{3})*)`),
		bankgiro: regexp.MustCompile(`(\d{3}-\d{4})\s+Länsförsäkringar`),
		ocr:      regexp.MustCompile(`OCR-nummer\s+(\d{10,20})`),
		due:      regexp.MustCompile(`senast\s+(\d{4}-\d{2}-\d{2})`),
		dueDate:  isoDue,
	},
	{
		name:     "Transportstyrelsen",
		marker:   "Transportstyrelsen",
		amount:   regexp.MustCompile(`Summa\s+att\s+betala\s+(\d+)`),
		bankgiro: regexp.MustCompile(`(\d{3}-\d{4})\s+www\.transportstyrelsen\.se`),
		ocr:      regexp.MustCompile(`OCR-nummer\s+(\d{10,20})`),
		due:      regexp.MustCompile(`senast\s+(\d{4}-\d{2}-\d{2})`),
		dueDate:  isoDue,
	},
	{
		name:     "Telenor",
		marker:   "Telenor",
		amount:   regexp.MustCompile(`Summa\s+att\s+betala\s+(\d{1,3}(?:\.\d{3})*,\d{2})`),
		bankgiro: regexp.MustCompile(`(\d{4}-\d{4})\s+Telenor\s+Sverige\s+AB`),
		ocr:      regexp.MustCompile(`OCR-nummer:\s*#\s*(\d{10,20})`),
		due:      regexp.MustCompile(`oss\s+tillhanda\s+(\d{1,2})\s+([a-zA-ZåäöÅÄÖ]+)\s+(\d{4})`),
		dueDate: func(m []string) domain.Date {
			month, ok := swedishMonths[strings.ToLower(m[2])]
			if !ok {
				return domain.Date{}
			}
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			return domain.NewDate(year, month, day)
		},
	},
}

var (
	fallbackOCR      = regexp.MustCompile(`#\s*(\d{10,20})\s+#`)
	fallbackAmount   = regexp.MustCompile(`#\s*(\d{1,6})\s+(\d{2})\s`)
	fallbackBankgiro = regexp.MustCompile(`>\s*(\d{7}|\d{3}-\d{4})`)
)

// FromText extracts fields from the plain text of an invoice. Known issuers
// are matched by a marker string; other documents fall back to the OCR line
// layout printed at the bottom of Swedish payment slips.
func FromText(text string) Fields {
	for _, rule := range issuerRules {
		if strings.Contains(text, rule.marker) {
			return rule.extract(text)
		}
	}
	return fallback(text)
}

func (r issuerRule) extract(text string) Fields {
	f := Fields{Issuer: r.name}
	if m := r.amount.FindStringSubmatch(text); m != nil {
		if amount, err := domain.ParseMoney(swedishAmount(m[1])); err == nil {
			f.Amount = &amount
		}
	}
	if m := r.bankgiro.FindStringSubmatch(text); m != nil {
		f.Bankgiro = m[1]
	}
	if m := r.ocr.FindStringSubmatch(text); m != nil {
		f.OCR = m[1]
	}
	if m := r.due.FindStringSubmatch(text); m != nil {
		f.DueDate = r.dueDate(m)
	}
	return f
}

func fallback(text string) Fields {
	var f Fields
	if m := fallbackOCR.FindStringSubmatch(text); m != nil {
		f.OCR = m[1]
	}
	if m := fallbackAmount.FindStringSubmatch(text); m != nil {
		if amount, err := domain.ParseMoney(m[1] + "." + m[2]); err == nil {
			f.Amount = &amount
		}
	}
	if m := fallbackBankgiro.FindStringSubmatch(text); m != nil {
		bg := m[1]
		if !strings.Contains(bg, "-") {
			bg = bg[:3] + "-" + bg[3:]
		}
		f.Bankgiro = bg
	}
	return f
}

// swedishAmount turns "1.234,50" or "1 234" into "1234.50" / "1234".
func swedishAmount(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ".", "")
	return strings.Replace(s, ",", ".", 1)
}
