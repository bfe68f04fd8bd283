// SPDX-License-Identifier: Apache-2.0

package filterexpr

import (
	"fmt"
	"strings"
)

// ParseError reports where in a filter spec string parsing failed.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse filter spec at byte %d: %s", e.Pos, e.Msg)
}

// Parse reads a filter spec string (the atoms accepted by parseAtom,
// concatenated into a Chain) and returns its normalised, interned Filter
// handle.
func Parse(s string) (Filter, error) {
	f, n, err := parseChain(s, false)
	if err != nil {
		return Filter{}, err
	}
	if n != len(s) {
		return Filter{}, &ParseError{Pos: n, Msg: "unexpected trailing input"}
	}
	return Normalize(f), nil
}

// parseChain parses a maximal run of concatenated atoms (a Chain) starting
// at s[0:]. When stopAtDelim is true, parsing also stops upon encountering
// a ',' or ']' (there is no escape syntax), which terminate an argument inside a Compose,
// :subtract[...] or :exclude[...] atom. It returns the resulting filter and
// how many bytes of s were consumed.
func parseChain(s string, stopAtDelim bool) (Filter, int, error) {
	pos := 0
	var result Filter
	have := false

	for pos < len(s) {
		if stopAtDelim && (s[pos] == ',' || s[pos] == ']') {
			break
		}

		f, n, err := parseAtom(s[pos:])
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Pos += pos
			}
			return Filter{}, 0, err
		}

		if !have {
			result = f
			have = true
		} else {
			result = Chain(result, f)
		}
		pos += n
	}

	if !have {
		return Filter{}, 0, &ParseError{Pos: 0, Msg: "expected at least one filter atom"}
	}
	return result, pos, nil
}

func parseAtom(s string) (Filter, int, error) {
	// shift re-bases a ParseError raised inside a nested argument that
	// starts at byte off of s.
	shift := func(err error, off int) error {
		if pe, ok := err.(*ParseError); ok {
			pe.Pos += off
		}
		return err
	}

	switch {
	case strings.HasPrefix(s, ":workspace="):
		path, n := scanPath(s[len(":workspace="):])
		return Workspace(path), len(":workspace=") + n, nil

	case strings.HasPrefix(s, ":prefix="):
		path, n := scanPath(s[len(":prefix="):])
		return Prefix(path), len(":prefix=") + n, nil

	case strings.HasPrefix(s, ":subtract["):
		rest := s[len(":subtract["):]
		a, n1, err := parseChain(rest, true)
		if err != nil {
			return Filter{}, 0, shift(err, len(":subtract["))
		}
		rest = rest[n1:]
		if !strings.HasPrefix(rest, ",") {
			return Filter{}, 0, &ParseError{Pos: len(":subtract[") + n1, Msg: "expected ',' in :subtract[...]"}
		}
		rest = rest[1:]
		b, n2, err := parseChain(rest, true)
		if err != nil {
			return Filter{}, 0, shift(err, len(":subtract[")+n1+1)
		}
		rest = rest[n2:]
		if !strings.HasPrefix(rest, "]") {
			return Filter{}, 0, &ParseError{Pos: len(":subtract[") + n1 + 1 + n2, Msg: "expected ']' to close :subtract[...]"}
		}
		total := len(":subtract[") + n1 + 1 + n2 + 1
		return Subtract(a, b), total, nil

	case strings.HasPrefix(s, ":exclude["):
		rest := s[len(":exclude["):]
		a, n, err := parseChain(rest, true)
		if err != nil {
			return Filter{}, 0, shift(err, len(":exclude["))
		}
		rest = rest[n:]
		if !strings.HasPrefix(rest, "]") {
			return Filter{}, 0, &ParseError{Pos: len(":exclude[") + n, Msg: "expected ']' to close :exclude[...]"}
		}
		total := len(":exclude[") + n + 1
		return Subtract(Nop(), a), total, nil

	case strings.HasPrefix(s, ":["):
		rest := s[2:]
		pos := 0
		var filters []Filter
		for {
			f, n, err := parseChain(rest[pos:], true)
			if err != nil {
				return Filter{}, 0, shift(err, 2+pos)
			}
			filters = append(filters, f)
			pos += n
			if pos >= len(rest) {
				return Filter{}, 0, &ParseError{Pos: 2 + pos, Msg: "unterminated :[...]"}
			}
			switch rest[pos] {
			case ',':
				pos++
				continue
			case ']':
				pos++
			}
			break
		}
		return Compose(filters), 2 + pos, nil

	case strings.HasPrefix(s, ":nop"):
		return Nop(), len(":nop"), nil
	case strings.HasPrefix(s, ":empty"):
		return Empty(), len(":empty"), nil
	case strings.HasPrefix(s, ":DIRS"):
		return Dirs(), len(":DIRS"), nil
	case strings.HasPrefix(s, ":FOLD"):
		return Fold(), len(":FOLD"), nil
	case strings.HasPrefix(s, ":SQUASH"):
		return Squash(), len(":SQUASH"), nil

	case strings.HasPrefix(s, ":/"):
		path, n := scanPath(s[2:])
		return Subdir(path), 2 + n, nil

	case strings.HasPrefix(s, "::"):
		path, n := scanPath(s[2:])
		if looksLikeGlob(path) {
			return Glob(path), 2 + n, nil
		}
		return File(path), 2 + n, nil

	default:
		return Filter{}, 0, &ParseError{Pos: 0, Msg: "unrecognised filter atom"}
	}
}

// scanPath consumes a bare path or pattern: everything up to the next atom
// delimiter (':', ',', ']') or the end of the string.
func scanPath(s string) (string, int) {
	i := strings.IndexAny(s, ":,]")
	if i < 0 {
		return s, len(s)
	}
	return s[:i], i
}

func looksLikeGlob(p string) bool {
	return strings.ContainsAny(p, "*?[")
}
