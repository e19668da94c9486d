package analysis

import (
	"fmt"
	"strconv"

	tiaerrors "tia/internal/errors"
)

// Decode parses the text form written by Encode.
//
// Decoding is lenient about layout: whitespace, separators, quoting of list
// items and ids, unknown keys and anything after the root object are all
// accepted. It is strict about meaning: dangling ids, duplicate ids and
// invalid tags fail with MALFORMED_RECORD. Ids in the input need not match
// the registry order; they are renumbered through the unit identity.
func Decode(data []byte) (*TestImpactAnalysis, error) {
	d := &decoder{lex: lexer{input: data}}
	raw, err := d.root()
	if err != nil {
		return nil, malformed(err)
	}
	tia, err := raw.build()
	if err != nil {
		return nil, malformed(err)
	}
	return tia, nil
}

func malformed(err error) error {
	return tiaerrors.New(tiaerrors.MalformedRecord, "cannot decode analysis", err)
}

type rawTest struct {
	offset   int
	class    int
	hasClass bool
	tags     TagSet
	covered  []int
	execRef  string
}

type rawAnalysis struct {
	units map[int]CompiledUnit
	tests []rawTest
}

type decoder struct {
	lex    lexer
	peeked *token
}

func (d *decoder) peek() (token, error) {
	if d.peeked == nil {
		tok, err := d.lex.next()
		if err != nil {
			return token{}, err
		}
		d.peeked = &tok
	}
	return *d.peeked, nil
}

func (d *decoder) take() (token, error) {
	tok, err := d.peek()
	d.peeked = nil
	return tok, err
}

func (d *decoder) expect(kind tokenKind) (token, error) {
	tok, err := d.take()
	if err != nil {
		return token{}, err
	}
	if tok.kind != kind {
		return token{}, &syntaxError{Offset: tok.offset, Msg: fmt.Sprintf("expected %s, found %s", kind, describe(tok))}
	}
	return tok, nil
}

func describe(tok token) string {
	if tok.kind == tokString || tok.kind == tokBare {
		return strconv.Quote(tok.text)
	}
	return tok.kind.String()
}

// object reads key/value pairs up to the closing brace. The opening brace
// must already be consumed. field must consume exactly one value.
func (d *decoder) object(field func(key token) error) error {
	for {
		tok, err := d.peek()
		if err != nil {
			return err
		}
		switch tok.kind {
		case tokRBrace:
			_, err = d.take()
			return err
		case tokComma:
			if _, err := d.take(); err != nil {
				return err
			}
		case tokString, tokBare:
			if _, err := d.take(); err != nil {
				return err
			}
			if _, err := d.expect(tokColon); err != nil {
				return err
			}
			if err := field(tok); err != nil {
				return err
			}
		default:
			return &syntaxError{Offset: tok.offset, Msg: fmt.Sprintf("expected key, found %s", describe(tok))}
		}
	}
}

// list reads items up to the closing bracket. The opening bracket must
// already be consumed. item must consume exactly one value.
func (d *decoder) list(item func() error) error {
	for {
		tok, err := d.peek()
		if err != nil {
			return err
		}
		switch tok.kind {
		case tokRBracket:
			_, err = d.take()
			return err
		case tokComma:
			if _, err := d.take(); err != nil {
				return err
			}
		case tokEOF:
			return &syntaxError{Offset: tok.offset, Msg: "unterminated list"}
		default:
			if err := item(); err != nil {
				return err
			}
		}
	}
}

func (d *decoder) skipValue() error {
	tok, err := d.take()
	if err != nil {
		return err
	}
	switch tok.kind {
	case tokLBrace:
		return d.object(func(token) error { return d.skipValue() })
	case tokLBracket:
		return d.list(d.skipValue)
	case tokString, tokBare:
		return nil
	default:
		return &syntaxError{Offset: tok.offset, Msg: fmt.Sprintf("expected value, found %s", describe(tok))}
	}
}

func (d *decoder) scalar() (token, error) {
	tok, err := d.take()
	if err != nil {
		return token{}, err
	}
	if tok.kind != tokString && tok.kind != tokBare {
		return token{}, &syntaxError{Offset: tok.offset, Msg: fmt.Sprintf("expected scalar, found %s", describe(tok))}
	}
	return tok, nil
}

func parseID(tok token) (int, error) {
	id, err := strconv.Atoi(tok.text)
	if err != nil || id < 0 {
		return 0, &syntaxError{Offset: tok.offset, Msg: fmt.Sprintf("invalid id %s", describe(tok))}
	}
	return id, nil
}

func (d *decoder) id() (int, error) {
	tok, err := d.scalar()
	if err != nil {
		return 0, err
	}
	return parseID(tok)
}

func (d *decoder) root() (*rawAnalysis, error) {
	if _, err := d.expect(tokLBrace); err != nil {
		return nil, err
	}
	raw := &rawAnalysis{units: make(map[int]CompiledUnit)}
	err := d.object(func(key token) error {
		switch key.text {
		case "classes":
			return d.units(raw)
		case "tests":
			return d.tests(raw)
		default:
			return d.skipValue()
		}
	})
	// Whatever follows the root object is ignored.
	return raw, err
}

func (d *decoder) units(raw *rawAnalysis) error {
	if _, err := d.expect(tokLBrace); err != nil {
		return err
	}
	return d.object(func(key token) error {
		id, err := parseID(key)
		if err != nil {
			return err
		}
		if _, dup := raw.units[id]; dup {
			return &syntaxError{Offset: key.offset, Msg: fmt.Sprintf("duplicate class id %d", id)}
		}
		unit, err := d.unit()
		if err != nil {
			return err
		}
		raw.units[id] = unit
		return nil
	})
}

func (d *decoder) unit() (CompiledUnit, error) {
	var u CompiledUnit
	if _, err := d.expect(tokLBrace); err != nil {
		return u, err
	}
	err := d.object(func(key token) error {
		var dst *string
		switch key.text {
		case "name":
			dst = &u.Name
		case "path":
			dst = &u.Path
		case "outputFolder":
			dst = &u.OutputFolder
		case "hash":
			dst = &u.Hash
		default:
			return d.skipValue()
		}
		tok, err := d.scalar()
		if err != nil {
			return err
		}
		*dst = tok.text
		return nil
	})
	return u, err
}

func (d *decoder) tests(raw *rawAnalysis) error {
	if _, err := d.expect(tokLBracket); err != nil {
		return err
	}
	return d.list(func() error {
		test, err := d.test()
		if err != nil {
			return err
		}
		raw.tests = append(raw.tests, test)
		return nil
	})
}

func (d *decoder) test() (rawTest, error) {
	open, err := d.expect(tokLBrace)
	if err != nil {
		return rawTest{}, err
	}
	t := rawTest{offset: open.offset}
	err = d.object(func(key token) error {
		switch key.text {
		case "class":
			id, err := d.id()
			t.class, t.hasClass = id, err == nil
			return err
		case "tags":
			if _, err := d.expect(tokLBracket); err != nil {
				return err
			}
			return d.list(func() error {
				tok, err := d.scalar()
				if err != nil {
					return err
				}
				tag, err := ParseTag(tok.text)
				if err != nil {
					return &syntaxError{Offset: tok.offset, Msg: err.Error()}
				}
				t.tags = t.tags.With(tag)
				return nil
			})
		case "coveredClasses":
			if _, err := d.expect(tokLBracket); err != nil {
				return err
			}
			return d.list(func() error {
				id, err := d.id()
				t.covered = append(t.covered, id)
				return err
			})
		case "executionId":
			tok, err := d.scalar()
			if err != nil {
				return err
			}
			if tok.kind == tokString || tok.text != "null" {
				t.execRef = tok.text
			}
			return nil
		default:
			return d.skipValue()
		}
	})
	return t, err
}

// build renumbers the file's ids through the registry derived from its units.
func (raw *rawAnalysis) build() (*TestImpactAnalysis, error) {
	units := make([]CompiledUnit, 0, len(raw.units))
	for _, u := range raw.units {
		units = append(units, u)
	}
	registry := NewRegistry(units)

	resolve := func(fileID, offset int) (int, error) {
		u, ok := raw.units[fileID]
		if !ok {
			return 0, &syntaxError{Offset: offset, Msg: fmt.Sprintf("class id %d is not declared", fileID)}
		}
		return registry.IDByUnit(u), nil
	}

	tests := make([]AnalyzedTest, 0, len(raw.tests))
	for _, rt := range raw.tests {
		if !rt.hasClass {
			return nil, &syntaxError{Offset: rt.offset, Msg: "test without class"}
		}
		if err := rt.tags.Validate(); err != nil {
			return nil, &syntaxError{Offset: rt.offset, Msg: err.Error()}
		}
		testID, err := resolve(rt.class, rt.offset)
		if err != nil {
			return nil, err
		}
		covered := make([]int, len(rt.covered))
		for i, c := range rt.covered {
			if covered[i], err = resolve(c, rt.offset); err != nil {
				return nil, err
			}
		}
		tests = append(tests, AnalyzedTest{
			TestUnitID:     testID,
			Tags:           rt.tags,
			CoveredUnitIDs: normalizeIDs(covered),
			ExecutionRef:   rt.execRef,
		})
	}
	return New(registry, tests)
}
