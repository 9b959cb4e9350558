package substitution

import (
	"fmt"
	"unicode"
)

// SplitCommandLine parses a space-delimited attribute value into a list of
// arguments, each an ordered fragment sequence. Literal text runs are
// shell-split (quotes honored); fragment boundaries interact with argument
// boundaries as follows:
//
//   - a text run of only whitespace separates two adjacent substitutions:
//     `$(env A) $(env B)` is two arguments;
//   - leading whitespace in a text run closes the open argument:
//     `$(env B) asd` splits `asd` from the substitution;
//   - the first token of a text run joins the open argument:
//     `$(env C)/asd bsd` keeps `/asd` glued to the substitution;
//   - middle tokens become standalone arguments and the last token starts a
//     new argument that later fragments may join;
//   - trailing whitespace closes the argument: `exec $(env F)` splits `exec`
//     from the substitution result.
func SplitCommandLine(cmd string) ([][]Substitution, error) {
	subs, err := Parse(cmd)
	if err != nil {
		return nil, err
	}

	var args [][]Substitution
	var arg []Substitution
	closeArg := func() {
		args = append(args, arg)
		arg = nil
	}

	for _, sub := range subs {
		text, ok := sub.(Text)
		if !ok {
			arg = append(arg, sub)
			continue
		}
		tokens, err := shellSplit(text.Value)
		if err != nil {
			return nil, err
		}
		if len(tokens) == 0 {
			// Whitespace-only run: argument separator.
			closeArg()
			continue
		}
		if startsWithSpace(text.Value) && len(arg) != 0 {
			closeArg()
		}
		arg = append(arg, Text{Value: tokens[0]})
		if len(tokens) > 1 {
			closeArg()
			arg = append(arg, Text{Value: tokens[len(tokens)-1]})
		}
		for _, mid := range tokens[1:max(len(tokens)-1, 1)] {
			args = append(args, []Substitution{Text{Value: mid}})
		}
		if endsWithSpace(text.Value) {
			closeArg()
		}
	}
	if len(arg) > 0 {
		closeArg()
	}
	return args, nil
}

// shellSplit tokenizes like a POSIX shell word splitter: single quotes take
// everything literally, double quotes keep backslash escapes for `"` and
// `\`, and an unterminated quote is an error.
func shellSplit(s string) ([]string, error) {
	var tokens []string
	var cur []rune
	inToken := false
	var quote rune

	flush := func() {
		if inToken {
			tokens = append(tokens, string(cur))
			cur = cur[:0]
			inToken = false
		}
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur = append(cur, r)
			}
		case quote == '"':
			if r == '"' {
				quote = 0
			} else if r == '\\' && i+1 < len(runes) && (runes[i+1] == '"' || runes[i+1] == '\\') {
				i++
				cur = append(cur, runes[i])
			} else {
				cur = append(cur, r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == '\\' && i+1 < len(runes):
			i++
			cur = append(cur, runes[i])
			inToken = true
		case unicode.IsSpace(r):
			flush()
		default:
			cur = append(cur, r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %q quote in %q", quote, s)
	}
	flush()
	return tokens, nil
}

func startsWithSpace(s string) bool {
	for _, r := range s {
		return unicode.IsSpace(r)
	}
	return false
}

func endsWithSpace(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 {
		return false
	}
	return unicode.IsSpace(runes[len(runes)-1])
}
