package cfront

import (
	"fmt"
	"regexp"
	"strings"
)

// ntPattern matches the type and name of a null-terminated pointer declaration.
var ntPattern = regexp.MustCompile(`_Nt_array_ptr\s*<\s*([A-Za-z_][A-Za-z_0-9 ]*?)\s*>\s*([A-Za-z_][A-Za-z_0-9]*)`)

// wherePattern matches the start of a where clause.
var wherePattern = regexp.MustCompile(`\b_Where\b`)

// factPattern matches the variable of a single where clause fact.
var factPattern = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z_0-9]*)\s*:\s*`)

// annotations holds the Checked C annotations removed from the source, keyed
// by byte offset so they can be reattached to the parsed tree.
type annotations struct {
	// Declared names that were null-terminated pointers, keyed by the end
	// offset of the name. The value holds the bounds text, if any.
	ntPtrs map[uint32]string

	// Where clause facts keyed by the offset just past the terminating ';'.
	wheres map[uint32][]fact
}

// fact is an unresolved "name : bounds" where clause fact.
type fact struct {
	name   string
	bounds string
}

// preprocess rewrites Checked C annotations to plain C. The rewritten source
// has the same length and line structure as src so offsets into the tree
// match offsets into the original text.
func preprocess(src []byte) ([]byte, *annotations, error) {
	out := make([]byte, len(src))
	copy(out, src)

	ann := &annotations{
		ntPtrs: make(map[uint32]string),
		wheres: make(map[uint32][]fact),
	}

	for _, m := range ntPattern.FindAllSubmatchIndex(src, -1) {
		start, nameStart, nameEnd := m[0], m[4], m[5]
		elem := strings.Join(strings.Fields(string(src[m[2]:m[3]])), " ")

		// Replace "_Nt_array_ptr<T> " with "T      *".
		n := nameStart - start
		replacement := elem + strings.Repeat(" ", n-len(elem)-1) + "*"
		copy(out[start:nameStart], replacement)

		var bounds string
		if i := skipSpace(src, nameEnd); i < len(src) && src[i] == ':' {
			text, end, err := scanBounds(src, skipSpace(src, i+1))
			if err != nil {
				return nil, nil, err
			}
			bounds = text
			blank(out, i, end)
		}
		ann.ntPtrs[uint32(nameEnd)] = bounds
	}

	for _, loc := range wherePattern.FindAllIndex(src, -1) {
		semi := indexByteFrom(src, loc[1], ';')
		if semi < 0 {
			return nil, nil, fmt.Errorf("%w: unterminated _Where clause", ErrSyntax)
		}

		facts, err := parseFacts(string(src[loc[1]:semi]))
		if err != nil {
			return nil, nil, err
		}
		ann.wheres[uint32(semi+1)] = facts
		blank(out, loc[0], semi)
	}

	return out, ann, nil
}

// parseFacts parses "p : bounds(...) _And q : count(...)".
func parseFacts(text string) ([]fact, error) {
	var facts []fact
	for _, part := range strings.Split(text, "_And") {
		m := factPattern.FindStringSubmatchIndex(part)
		if m == nil {
			return nil, fmt.Errorf("%w: invalid _Where fact: %q", ErrSyntax, strings.TrimSpace(part))
		}

		bounds, end, err := scanBounds([]byte(part), m[1])
		if err != nil {
			return nil, err
		} else if strings.TrimSpace(part[end:]) != "" {
			return nil, fmt.Errorf("%w: unexpected text after bounds: %q", ErrSyntax, part[end:])
		}
		facts = append(facts, fact{name: part[m[2]:m[3]], bounds: bounds})
	}
	return facts, nil
}

// scanBounds reads "bounds(...)" or "count(...)" starting at i and returns
// the text and the offset just past the closing parenthesis.
func scanBounds(src []byte, i int) (string, int, error) {
	start := i
	for i < len(src) && isIdent(src[i]) {
		i++
	}
	if kw := string(src[start:i]); kw != "bounds" && kw != "count" {
		return "", 0, fmt.Errorf("%w: expected bounds or count, got %q", ErrSyntax, kw)
	}

	i = skipSpace(src, i)
	if i >= len(src) || src[i] != '(' {
		return "", 0, fmt.Errorf("%w: expected '(' in bounds expression", ErrSyntax)
	}

	depth := 0
	for ; i < len(src); i++ {
		switch src[i] {
		case '(':
			depth++
		case ')':
			if depth--; depth == 0 {
				return string(src[start : i+1]), i + 1, nil
			}
		}
	}
	return "", 0, fmt.Errorf("%w: unbalanced parentheses in bounds expression", ErrSyntax)
}

// blank replaces src[i:j] with spaces, keeping line breaks.
func blank(src []byte, i, j int) {
	for ; i < j; i++ {
		if src[i] != '\n' {
			src[i] = ' '
		}
	}
}

func skipSpace(src []byte, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
		i++
	}
	return i
}

func indexByteFrom(src []byte, i int, c byte) int {
	for ; i < len(src); i++ {
		if src[i] == c {
			return i
		}
	}
	return -1
}

func isIdent(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
