package playlist

import (
	"fmt"
	"strings"
)

// Attribute is one KEY=VALUE pair of a tag attribute list. Quoted values are
// stored unescaped.
type Attribute struct {
	Key    string
	Value  string
	Quoted bool
}

func (a Attribute) String() string {
	if a.Quoted {
		return a.Key + `="` + escape(a.Value) + `"`
	}
	return a.Key + "=" + a.Value
}

func quoted(key, value string) Attribute {
	return Attribute{Key: key, Value: value, Quoted: true}
}

func plain(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func formatAttributes(attrs []Attribute) string {
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ",")
}

// ParseAttributes splits an attribute list, honouring commas inside quoted
// strings and the \\ \" \n \r \t escapes.
func ParseAttributes(s string) ([]Attribute, error) {
	var attrs []Attribute
	i := 0
	for i < len(s) {
		eq := strings.IndexByte(s[i:], '=')
		if eq <= 0 {
			return nil, fmt.Errorf("attribute without value at offset %d", i)
		}
		key := strings.TrimSpace(s[i : i+eq])
		i += eq + 1

		if i < len(s) && s[i] == '"' {
			value, next, err := readQuoted(s, i+1)
			if err != nil {
				return nil, fmt.Errorf("attribute %s: %w", key, err)
			}
			attrs = append(attrs, quoted(key, value))
			i = next
		} else {
			end := strings.IndexByte(s[i:], ',')
			if end == -1 {
				end = len(s) - i
			}
			attrs = append(attrs, plain(key, strings.TrimSpace(s[i:i+end])))
			i += end
		}

		if i < len(s) {
			if s[i] != ',' {
				return nil, fmt.Errorf("expected ',' at offset %d", i)
			}
			i++
		}
	}
	return attrs, nil
}

func readQuoted(s string, i int) (string, int, error) {
	var b strings.Builder
	for i < len(s) {
		c := s[i]
		switch c {
		case '"':
			return b.String(), i + 1, nil
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("dangling escape")
			}
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i+1])
			}
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated quoted string")
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escape(s string) string {
	return escaper.Replace(s)
}

func lookup(attrs []Attribute, key string) (Attribute, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a, true
		}
	}
	return Attribute{}, false
}
