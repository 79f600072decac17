package querycacheplugin

import "strings"

type token struct {
	text   string
	word   bool
	quoted bool
}

// tableKeywords are followed by a table list.
var tableKeywords = map[string]struct{}{
	"FROM":   {},
	"JOIN":   {},
	"UPDATE": {},
	"INTO":   {},
	"USING":  {},
}

// reserved words never name a table or alias in the positions the scanner looks at.
var reserved = map[string]struct{}{
	"ALL": {}, "AND": {}, "AS": {}, "CASE": {}, "CROSS": {}, "DEFAULT": {}, "ELSE": {},
	"END": {}, "EXCEPT": {}, "FETCH": {}, "FOR": {}, "FROM": {}, "FULL": {}, "GROUP": {},
	"HAVING": {}, "IN": {}, "INNER": {}, "INTERSECT": {}, "IS": {}, "JOIN": {},
	"LATERAL": {}, "LEFT": {}, "LIMIT": {}, "NATURAL": {}, "NOT": {}, "OFFSET": {},
	"ON": {}, "ONLY": {}, "OR": {}, "ORDER": {}, "OUTER": {}, "RETURNING": {},
	"RIGHT": {}, "SELECT": {}, "SET": {}, "TABLE": {}, "THEN": {}, "UNION": {},
	"USING": {}, "VALUES": {}, "WHEN": {}, "WHERE": {}, "WINDOW": {}, "WITH": {},
	"OVERRIDING": {}, "CONFLICT": {}, "DO": {}, "TABLESAMPLE": {},
}

// ScanTables returns every table named after FROM, JOIN, UPDATE, INTO,
// TRUNCATE [TABLE] or USING in sql, in order of appearance. Quoted literals and
// comments are skipped. Names are returned as written, quotes included.
func ScanTables(sql string) []string {
	tokens := tokenize(sql)
	var tables []string
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if !t.word || t.quoted {
			continue
		}
		keyword := strings.ToUpper(t.text)
		if keyword == "TRUNCATE" {
			j := i + 1
			if j < len(tokens) && tokens[j].word && strings.EqualFold(tokens[j].text, "TABLE") {
				j++
			}
			i = collectTables(tokens, j, &tables)
			continue
		}
		if _, ok := tableKeywords[keyword]; ok {
			i = collectTables(tokens, i+1, &tables)
		}
	}
	return tables
}

// collectTables reads a comma separated table list starting at j and returns the
// index of the last token it consumed.
func collectTables(tokens []token, j int, tables *[]string) int {
	for {
		if j < len(tokens) && isKeyword(tokens[j], "ONLY") {
			j++
		}
		if j >= len(tokens) || !isName(tokens[j]) {
			return j - 1
		}
		*tables = append(*tables, tokens[j].text)
		j++

		// alias
		if j < len(tokens) && isKeyword(tokens[j], "AS") {
			j += 2
		} else if j < len(tokens) && isName(tokens[j]) {
			j++
		}

		if j < len(tokens) && !tokens[j].word && tokens[j].text == "," {
			j++
			continue
		}
		return j - 1
	}
}

func isKeyword(t token, keyword string) bool {
	return t.word && !t.quoted && strings.EqualFold(t.text, keyword)
}

func isName(t token) bool {
	if !t.word {
		return false
	}
	if t.quoted {
		return true
	}
	_, ok := reserved[strings.ToUpper(t.text)]
	return !ok
}

func tokenize(sql string) []token {
	var tokens []token
	emit := func(t token) {
		// schema.table and "schema"."table" become one name
		if t.word && len(tokens) >= 2 && tokens[len(tokens)-1].text == "." && !tokens[len(tokens)-1].word && tokens[len(tokens)-2].word {
			prev := tokens[len(tokens)-2]
			tokens = tokens[:len(tokens)-2]
			t = token{text: prev.text + "." + t.text, word: true, quoted: prev.quoted || t.quoted}
		}
		tokens = append(tokens, t)
	}

	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			i++
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return tokens
			}
			i += end + 4
		case c == '\'':
			i = skipQuoted(sql, i, '\'')
			tokens = append(tokens, token{text: "'"})
		case c == '"' || c == '`':
			end := skipQuoted(sql, i, c)
			emit(token{text: sql[i:end], word: true, quoted: true})
			i = end
		case c == '[':
			end := strings.IndexByte(sql[i:], ']')
			if end < 0 {
				return tokens
			}
			emit(token{text: sql[i : i+end+1], word: true, quoted: true})
			i += end + 1
		case isIdentStart(c):
			start := i
			for i < len(sql) && isIdentPart(sql[i]) {
				i++
			}
			emit(token{text: sql[start:i], word: true})
		case c >= '0' && c <= '9':
			for i < len(sql) && (isIdentPart(sql[i]) || sql[i] == '.') {
				i++
			}
			tokens = append(tokens, token{text: "0"})
		default:
			tokens = append(tokens, token{text: string(c)})
			i++
		}
	}
	return tokens
}

// skipQuoted returns the index just past the literal opened at sql[start]. A doubled
// quote character is an escaped quote.
func skipQuoted(sql string, start int, quote byte) int {
	i := start + 1
	for i < len(sql) {
		if sql[i] == quote {
			if i+1 < len(sql) && sql[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(sql)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '$'
}
