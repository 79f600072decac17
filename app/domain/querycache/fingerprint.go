package querycache

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// maxValuerDepth bounds driver.Valuer chains that return another Valuer.
const maxValuerDepth = 4

// Fingerprinter derives cache keys from normalized SQL and bindings. It is stateless.
type Fingerprinter struct{}

func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{}
}

type fingerprintInput struct {
	SQL      string   `json:"sql"`
	Bindings [][2]any `json:"bindings"`
}

// Fingerprint returns explicitKey verbatim when it is non-empty, otherwise the
// hex SHA-256 of the canonical encoding of the normalized SQL and its bindings.
func (f *Fingerprinter) Fingerprint(sql string, bindings []any, explicitKey string) (string, error) {
	if explicitKey != "" {
		return explicitKey, nil
	}

	input := fingerprintInput{
		SQL:      NormalizeSQL(sql),
		Bindings: make([][2]any, 0, len(bindings)),
	}
	for i, binding := range bindings {
		class, value, err := canonicalBinding(binding)
		if err != nil {
			return "", &SerializationError{Err: fmt.Errorf("binding %d: %w", i, err)}
		}
		input.Bindings = append(input.Bindings, [2]any{class, value})
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return "", &SerializationError{Err: err}
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// NormalizeSQL collapses whitespace runs outside quoted literals and identifiers
// into a single space. Quoted text, including backslash escapes and Postgres
// dollar-quoted bodies, is kept byte for byte; a literal that never closes keeps
// the rest of the statement verbatim.
func NormalizeSQL(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	pendingSpace := false
	var prev rune
	for i := 0; i < len(sql); {
		r, size := utf8.DecodeRuneInString(sql[i:])
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			prev = r
			i += size
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}

		end := i + size
		switch {
		case r == '\'' || r == '"' || r == '`':
			end = quotedEnd(sql, i)
		case r == '$' && !isIdentRune(prev):
			if tag, ok := dollarTag(sql[i:]); ok {
				end = dollarQuotedEnd(sql, i, tag)
			}
		}
		b.WriteString(sql[i:end])
		prev, _ = utf8.DecodeLastRuneInString(sql[i:end])
		i = end
	}
	return b.String()
}

// quotedEnd returns the index just past the literal opened at sql[start]. A doubled
// quote is an escaped quote, and so is a backslash-escaped one outside backticks.
func quotedEnd(sql string, start int) int {
	quote := sql[start]
	for j := start + 1; j < len(sql); {
		switch c := sql[j]; {
		case c == '\\' && quote != '`':
			j += 2
		case c == quote && j+1 < len(sql) && sql[j+1] == quote:
			j += 2
		case c == quote:
			return j + 1
		default:
			j++
		}
	}
	return len(sql)
}

// dollarTag returns the opening delimiter of a dollar-quoted string ($$ or $tag$)
// at the start of s. Positional parameters such as $1 are not delimiters.
func dollarTag(s string) (string, bool) {
	j := 1
	for j < len(s) {
		c := s[j]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80 || (j > 1 && c >= '0' && c <= '9') {
			j++
			continue
		}
		break
	}
	if j < len(s) && s[j] == '$' {
		return s[:j+1], true
	}
	return "", false
}

func dollarQuotedEnd(sql string, start int, tag string) int {
	body := start + len(tag)
	idx := strings.Index(sql[body:], tag)
	if idx < 0 {
		return len(sql)
	}
	return body + idx + len(tag)
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// canonicalBinding tags a binding with its value class so that values of
// different kinds that print alike (5 and "5") never share an encoding.
func canonicalBinding(v any) (string, any, error) {
	for depth := 0; ; depth++ {
		if v == nil {
			return "null", nil, nil
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return "null", nil, nil
			}
		}
		valuer, ok := v.(driver.Valuer)
		if !ok || depth >= maxValuerDepth {
			break
		}
		dv, err := valuer.Value()
		if err != nil {
			return "", nil, err
		}
		v = dv
	}

	switch value := v.(type) {
	case time.Time:
		return "time", value.UTC().Format(time.RFC3339Nano), nil
	case []byte:
		return "bytes", value, nil
	case json.RawMessage:
		return "json", value, nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "null", nil, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Bool:
		return "bool", rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int", rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return "uint", rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return "float", rv.Float(), nil
	case reflect.String:
		return "string", rv.String(), nil
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return "", nil, fmt.Errorf("unsupported binding type %s", rv.Type())
	}

	if rv.Kind() == reflect.Struct {
		if t, ok := rv.Interface().(time.Time); ok {
			return "time", t.UTC().Format(time.RFC3339Nano), nil
		}
	}

	// Maps are encoded with sorted keys; slices and structs in declaration order.
	raw, err := json.Marshal(rv.Interface())
	if err != nil {
		return "", nil, err
	}
	return "json", json.RawMessage(raw), nil
}
