package analysis

import (
	"bytes"
	"strconv"
	"unicode/utf8"
)

// Encode writes the canonical text form of an analysis.
//
// Units are emitted by ascending id, tests by ascending test unit id, covered
// ids ascending and tags in declaration order. The output for a given logical
// record is byte-for-byte stable because ID hashes it.
func Encode(t *TestImpactAnalysis) []byte {
	var b bytes.Buffer

	b.WriteString("{\n")
	b.WriteString("  \"classes\": {")
	for id, u := range t.registry.Units() {
		if id > 0 {
			b.WriteByte(',')
		}
		b.WriteString("\n    \"")
		b.WriteString(strconv.Itoa(id))
		b.WriteString("\": {\n")
		writeField(&b, "name", u.Name, true)
		writeField(&b, "path", u.Path, true)
		writeField(&b, "outputFolder", u.OutputFolder, true)
		writeField(&b, "hash", u.Hash, false)
		b.WriteString("    }")
	}
	if t.registry.Len() > 0 {
		b.WriteString("\n  ")
	}
	b.WriteString("},\n")

	b.WriteString("  \"tests\": [")
	for i, test := range t.tests {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString("\n    {\n")
		b.WriteString("      \"class\": ")
		b.WriteString(strconv.Itoa(test.TestUnitID))
		b.WriteString(",\n")

		b.WriteString("      \"tags\": [")
		for j, tag := range test.Tags.Tags() {
			if j > 0 {
				b.WriteString(", ")
			}
			writeString(&b, tag.String())
		}
		b.WriteString("],\n")

		b.WriteString("      \"coveredClasses\": [")
		for j, id := range test.CoveredUnitIDs {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Itoa(id))
		}
		b.WriteByte(']')

		if test.HasExecutionRef() {
			b.WriteString(",\n      \"executionId\": ")
			writeString(&b, test.ExecutionRef)
		}
		b.WriteString("\n    }")
	}
	if len(t.tests) > 0 {
		b.WriteString("\n  ")
	}
	b.WriteString("]\n")
	b.WriteString("}\n")

	return b.Bytes()
}

func writeField(b *bytes.Buffer, key, value string, more bool) {
	b.WriteString("      ")
	writeString(b, key)
	b.WriteString(": ")
	writeString(b, value)
	if more {
		b.WriteByte(',')
	}
	b.WriteByte('\n')
}

const hexDigits = "0123456789abcdef"

// writeString writes s as a JSON string literal.
func writeString(b *bytes.Buffer, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"' || c == '\\':
				b.WriteByte('\\')
				b.WriteByte(c)
			case c == '\n':
				b.WriteString(`\n`)
			case c == '\r':
				b.WriteString(`\r`)
			case c == '\t':
				b.WriteString(`\t`)
			case c < 0x20:
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[c>>4])
				b.WriteByte(hexDigits[c&0xf])
			default:
				b.WriteByte(c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteString(`\ufffd`)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	b.WriteByte('"')
}
