package importer

import "strings"

// ClassifyHeaders maps each header onto the first canonical field whose
// keyword list has a substring match. Empty headers are skipped. Several
// columns may map onto the same field.
func ClassifyHeaders(headers []string) ColumnMapping {
	mapping := make(ColumnMapping)
	for idx, header := range headers {
		normalized := strings.ToLower(strings.TrimSpace(header))
		if normalized == "" {
			continue
		}
		if field, ok := classify(normalized); ok {
			mapping[idx] = field
		}
	}
	return mapping
}

func classify(header string) (Field, bool) {
	for _, entry := range keywordTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(header, keyword) {
				return entry.field, true
			}
		}
	}
	return "", false
}
