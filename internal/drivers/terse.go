package drivers

import "strings"

// parseTerseLines parses RouterOS "print terse" output: one record per
// line, fields as whitespace-separated key=value pairs, with an
// optional leading flags/index column this parser ignores.
func parseTerseLines(output string) []map[string]string {
	var records []map[string]string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rec := parseTerseFields(line)
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}
	return records
}

// parseTerseFields extracts key=value pairs from a single terse
// output line. Values may be quoted to contain spaces.
func parseTerseFields(line string) map[string]string {
	rec := make(map[string]string)
	var key, val strings.Builder
	inValue, inQuotes := false, false

	flush := func() {
		if key.Len() > 0 {
			rec[key.String()] = val.String()
		}
		key.Reset()
		val.Reset()
		inValue = false
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case !inValue && c == '=':
			inValue = true
		case inValue && c == '"':
			inQuotes = !inQuotes
		case !inQuotes && c == ' ' && inValue:
			flush()
		case inValue:
			val.WriteByte(c)
		case !inValue && c != ' ':
			key.WriteByte(c)
		case !inValue && c == ' ' && key.Len() > 0:
			// bare flag/index token with no '=', discard and reset
			key.Reset()
		}
	}
	flush()
	return rec
}
