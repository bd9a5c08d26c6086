package table

import "strings"

// reservedChars maps characters that break downstream consumers (the
// correlation tool, the graph labels) to their replacement.
var reservedChars = []struct{ from, to string }{
	{" ", "_"},
	{",", "_"},
	{"<", "_"},
	{">", "_"},
	{"[", "("},
	{"]", ")"},
}

var nameReplacer = func() *strings.Replacer {
	pairs := make([]string, 0, 2*len(reservedChars))
	for _, rc := range reservedChars {
		pairs = append(pairs, rc.from, rc.to)
	}
	return strings.NewReplacer(pairs...)
}()

// SanitizeName replaces reserved characters in a column name.
func SanitizeName(name string) string {
	return nameReplacer.Replace(name)
}
