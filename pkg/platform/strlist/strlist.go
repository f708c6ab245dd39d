// Package strlist parses comma separated settings such as relay URLs and
// broker addresses.
package strlist

import "strings"

// Split cuts raw on sep, trims each part and drops empty parts and
// repeats. Order is preserved.
//
//	Split(" wss://a , wss://b,,wss://a", ",")
//	// []string{"wss://a", "wss://b"}
func Split(raw, sep string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return Dedupe(strings.Split(raw, sep))
}

// Dedupe trims each value and drops empty values and repeats.
func Dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
