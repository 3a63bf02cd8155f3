package lexer

import (
	"strings"
	"unicode"
)

// isControlStart reports whether a trimmed line opens a control block. The
// shape requirements keep keyword-looking prose from being misclassified:
// most keywords need a trailing colon, definitions need a parameter list.
func isControlStart(trimmed string) bool {
	effective := stripTrailingComment(trimmed)

	if strings.HasPrefix(trimmed, "for ") || strings.HasPrefix(trimmed, "async for ") {
		return strings.HasSuffix(effective, ":")
	}
	if strings.HasPrefix(trimmed, "if ") ||
		strings.HasPrefix(trimmed, "while ") ||
		strings.HasPrefix(trimmed, "match ") ||
		strings.HasPrefix(trimmed, "with ") ||
		strings.HasPrefix(trimmed, "async with ") {
		return strings.HasSuffix(effective, ":")
	}
	if trimmed == "try:" || trimmed == "try :" {
		return true
	}
	if strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "async def ") {
		return strings.Contains(effective, "(")
	}
	if strings.HasPrefix(trimmed, "class ") {
		rest := trimmed[len("class "):]
		if rest != "" {
			first := rune(rest[0])
			return (unicode.IsLetter(first) || first == '_') && strings.HasSuffix(effective, ":")
		}
	}
	return false
}

func isControlContinuation(trimmed string) bool {
	return strings.HasPrefix(trimmed, "else:") || strings.HasPrefix(trimmed, "else :") ||
		strings.HasPrefix(trimmed, "elif ") ||
		strings.HasPrefix(trimmed, "except") ||
		strings.HasPrefix(trimmed, "finally:") || strings.HasPrefix(trimmed, "finally :") ||
		strings.HasPrefix(trimmed, "case ")
}

// cssAtRules keeps stylesheet at-rules inside <style> blocks from being read
// as decorators.
var cssAtRules = []string{
	"@media", "@keyframes", "@import", "@charset", "@font-face",
	"@supports", "@namespace", "@page", "@counter-style", "@layer",
	"@property", "@container", "@scope",
}

func isCSSAtRule(trimmed string) bool {
	for _, rule := range cssAtRules {
		if strings.HasPrefix(trimmed, rule) {
			return true
		}
	}
	return false
}

// isParameterDecl matches declaration-zone parameter lines: `name: type`,
// `name: type = default`, `*args: tuple`, `**kwargs: dict`. These are not
// valid host statements on their own but are meaningful before the separator.
func isParameterDecl(trimmed string) bool {
	if !strings.Contains(trimmed, ":") {
		return false
	}
	if strings.HasPrefix(trimmed, "*") {
		return true
	}
	first := rune(trimmed[0])
	if !unicode.IsLetter(first) && first != '_' {
		return false
	}
	colon := strings.Index(trimmed, ":")
	if eq := strings.Index(trimmed, "="); eq >= 0 {
		return colon < eq
	}
	return true
}

// isMarkupAssignment matches `name = <markup>` with an optional type
// annotation on the left.
func isMarkupAssignment(trimmed string) bool {
	eq := strings.Index(trimmed, " = ")
	if eq < 0 {
		return false
	}
	after := strings.TrimSpace(trimmed[eq+3:])
	if !strings.HasPrefix(after, "<") || strings.HasPrefix(after, "<=") || strings.HasPrefix(after, "<<") {
		return false
	}
	ident := strings.TrimSpace(trimmed[:eq])
	if colon := strings.Index(ident, ":"); colon >= 0 {
		ident = strings.TrimSpace(ident[:colon])
	}
	if ident == "" {
		return false
	}
	first := rune(ident[0])
	if !unicode.IsLetter(first) && first != '_' {
		return false
	}
	for _, r := range ident {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

var statementPrefixes = []string{
	"import ", "from ", "return ", "raise ", "assert ", "del ",
	"global ", "nonlocal ", "yield ", "await ",
}

var statementKeywords = map[string]bool{
	"return": true, "raise": true, "pass": true,
	"break": true, "continue": true, "yield": true,
}

var augmentedOps = []string{
	" = ", " += ", " -= ", " *= ", " /= ", " //= ", " %= ", " **= ",
	" &= ", " |= ", " ^= ", " >>= ", " <<= ", " := ",
}

// isCapitalizedAssignment recognizes `MAX = 10` and `MAX: int = 10` style
// lines whose left-hand side is a single identifier.
func isCapitalizedAssignment(trimmed string) bool {
	for _, op := range augmentedOps {
		lhs, _, ok := strings.Cut(trimmed, op)
		if !ok {
			continue
		}
		lhs = strings.TrimSpace(lhs)
		if name, _, annotated := strings.Cut(lhs, ":"); annotated {
			lhs = strings.TrimSpace(name)
		}
		return isIdentifier(lhs)
	}
	return false
}

// isHostStatement decides whether an unclassified line is host code rather
// than template content. Content is the default: only lines carrying clear
// statement markers (assignment operators, statement keywords, a lone call)
// pass through verbatim.
func isHostStatement(trimmed string) bool {
	if trimmed == "" {
		return false
	}

	// Lines opening with punctuation, a digit or a capital letter read as
	// prose or markup, never as statements.
	first := rune(trimmed[0])
	switch {
	case strings.ContainsRune("<>&!?/*+-.,;:[]()\"'`~^%$|", first):
		return false
	case first >= '0' && first <= '9':
		return false
	case first >= 'A' && first <= 'Z':
		// Conventionally named constants (`MAX = 10`) still assign; any
		// other capitalized line reads as prose.
		return isCapitalizedAssignment(trimmed)
	}

	// A reserved word used as a plain variable still assigns.
	if strings.HasPrefix(trimmed, "class =") || strings.HasPrefix(trimmed, "class=") {
		return true
	}

	if statementKeywords[trimmed] {
		return true
	}
	for _, p := range statementPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	for _, op := range augmentedOps {
		if strings.Contains(trimmed, op) {
			return true
		}
	}

	// Annotated assignment or bare annotation: `name: type`.
	if name, _, ok := strings.Cut(trimmed, ": "); ok {
		name = strings.TrimSpace(name)
		if name != "" && isIdentifier(name) {
			return true
		}
	}

	// Bare call: lowercase identifier followed by a closed argument list.
	if first >= 'a' && first <= 'z' && strings.Contains(trimmed, "(") && strings.Contains(trimmed, ")") {
		return true
	}

	// A statement spilling onto following lines has open brackets plus an
	// assignment or call shape.
	if bracketDepth(trimmed) > 0 {
		hasAssign := strings.Contains(trimmed, " = ") || strings.Contains(trimmed, ": ")
		hasCall := strings.Contains(trimmed, "(") && !strings.Contains(trimmed, ")")
		if (unicode.IsLetter(first) || first == '_') && (hasAssign || hasCall) {
			return true
		}
	}

	return false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

// stripTrailingComment removes an unquoted ` # comment` tail so shape checks
// see only the code portion of a line.
func stripTrailingComment(line string) string {
	inSingle, inDouble := false, false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '\\':
			if inSingle || inDouble {
				i++
			}
		case '#':
			if !inSingle && !inDouble && i > 0 && line[i-1] == ' ' {
				return strings.TrimRight(line[:i], " \t")
			}
		}
	}
	return line
}

// bracketDepth computes the net open-bracket depth of code, ignoring
// brackets inside string literals and comments. Used to join multi-line
// statements.
func bracketDepth(code string) int {
	depth := 0
	inString := false
	inTriple := false
	var stringChar byte

	for i := 0; i < len(code); i++ {
		c := code[i]
		if inString {
			if c == '\\' && !inTriple {
				i++
				continue
			}
			if inTriple {
				if c == stringChar && i+2 < len(code) && code[i+1] == stringChar && code[i+2] == stringChar {
					i += 2
					inString, inTriple = false, false
				} else if c == stringChar && i+1 < len(code) && code[i+1] == stringChar {
					i++
				}
				continue
			}
			if c == stringChar {
				inString = false
			}
			continue
		}
		switch c {
		case '"', '\'':
			if i+2 < len(code) && code[i+1] == c && code[i+2] == c {
				inString, inTriple = true, true
				stringChar = c
				i += 2
			} else if i+1 < len(code) && code[i+1] == c {
				// Empty string literal.
				i++
			} else {
				inString = true
				stringChar = c
			}
		case '#':
			for i < len(code) && code[i] != '\n' {
				i++
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}
