package core

import "strings"

// keyword sets checked in priority order; the first set with a hit wins.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{Single, []string{"single"}},
	{Double, []string{"double", "tandem"}},
	{SUP, []string{"sup", "paddleboard"}},
}

// Classify infers the equipment category of a booking from its free text.
// It always returns one of the four categories.
func Classify(note string, fields []CustomField, customers []Customer) Category {
	haystack := buildHaystack(note, fields, customers)
	for _, set := range categoryKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(haystack, kw) {
				return set.category
			}
		}
	}
	return Unlisted
}

// ClassifyBooking is Classify over a booking's note, custom fields and customers.
func ClassifyBooking(b Booking) Category {
	return Classify(b.Note, b.CustomFields, b.Customers)
}

func buildHaystack(note string, fields []CustomField, customers []Customer) string {
	var sb strings.Builder
	sb.WriteString(note)
	for _, f := range fields {
		if f.Value != "" {
			sb.WriteByte(' ')
			sb.WriteString(f.Value)
		}
		if f.DisplayValue != "" {
			sb.WriteByte(' ')
			sb.WriteString(f.DisplayValue)
		}
	}
	for _, c := range customers {
		if c.TypeLabel != "" {
			sb.WriteByte(' ')
			sb.WriteString(c.TypeLabel)
		}
	}
	return strings.ToLower(sb.String())
}
