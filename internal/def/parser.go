package def

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZacharyZcR/implib/internal/machine"
)

// Parse lexes and parses .DEF text into a ModuleDef for the given target
// machine. The machine is needed during parsing itself: the I386 implicit
// underscore-decoration rule (spec.md §4.2 point 3) depends on it.
func Parse(src []byte, m machine.Type) (*ModuleDef, error) {
	p := &parser{lex: NewLexer(src), machine: m, def: &ModuleDef{}}
	for {
		done, err := p.parseOne()
		if err != nil {
			return nil, err
		}
		if done {
			return p.def, nil
		}
	}
}

type parser struct {
	lex     *Lexer
	machine machine.Type
	def     *ModuleDef
}

// parseOne consumes one top-level directive. It returns done=true on EOF.
func (p *parser) parseOne() (done bool, err error) {
	tok := p.lex.Next()
	switch tok.Kind {
	case TokEOF:
		return true, nil

	case TokExports:
		for {
			next := p.lex.Next()
			if next.Kind != TokIdentifier {
				p.lex.Pushback(next)
				break
			}
			if err := p.parseExport(next); err != nil {
				return false, err
			}
		}

	case TokHeapsize:
		reserve, commit, err := p.parseNumbers()
		if err != nil {
			return false, err
		}
		p.def.HeapReserve, p.def.HeapCommit = reserve, commit

	case TokStacksize:
		reserve, commit, err := p.parseNumbers()
		if err != nil {
			return false, err
		}
		p.def.StackReserve, p.def.StackCommit = reserve, commit

	case TokLibrary, TokName:
		name, base, err := p.parseLibraryOrName()
		if err != nil {
			return false, err
		}
		p.def.ImportName, p.def.ImageBase = name, base

	case TokVersion:
		major, minor, err := p.parseVersion()
		if err != nil {
			return false, err
		}
		p.def.MajorImageVersion, p.def.MinorImageVersion = major, minor

	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownDirective, describe(tok))
	}
	return false, nil
}

func (p *parser) parseExport(nameTok Token) error {
	export := ShortExport{Name: nameTok.Value}

	tok := p.lex.Next()
	if tok.Kind == TokEqual {
		id, err := p.expectIdentifier()
		if err != nil {
			return err
		}
		export.ExtName = export.Name
		export.Name = id.Value
	} else {
		p.lex.Pushback(tok)
	}

	if p.machine == machine.I386 {
		if !isDecorated(export.Name) {
			export.Name = "_" + export.Name
		}
		if export.ExtName != "" && !isDecorated(export.ExtName) {
			export.ExtName = "_" + export.ExtName
		}
	}

	for {
		tok := p.lex.Next()

		if tok.Kind == TokIdentifier && strings.HasPrefix(tok.Value, "@") {
			rest := tok.Value[1:]
			if rest == "" {
				ordTok := p.lex.Next()
				ord, err := strconv.ParseUint(ordTok.Value, 10, 16)
				if ordTok.Kind != TokIdentifier || err != nil {
					return fmt.Errorf("%w: invalid ordinal %q", ErrExpectedInteger, ordTok.Value)
				}
				export.Ordinal = uint16(ord)
			} else {
				ord, err := strconv.ParseUint(rest, 10, 16)
				if err != nil {
					// Not an ordinal modifier after all (e.g. a decorated
					// name starting the next export) — finish this export.
					p.lex.Pushback(tok)
					p.def.Exports = append(p.def.Exports, export)
					return nil
				}
				export.Ordinal = uint16(ord)
			}

			next := p.lex.Next()
			if next.Kind == TokNoname {
				export.NoName = true
			} else {
				p.lex.Pushback(next)
			}
			continue
		}

		switch tok.Kind {
		case TokData:
			export.Data = true
		case TokConstant:
			export.Constant = true
		case TokPrivate:
			export.Private = true
		case TokEqualEqual:
			target, err := p.expectIdentifier()
			if err != nil {
				return err
			}
			export.AliasTarget = target.Value
		default:
			p.lex.Pushback(tok)
			p.def.Exports = append(p.def.Exports, export)
			return nil
		}
	}
}

// parseNumbers parses "reserve[, commit]" as decimal integers.
func (p *parser) parseNumbers() (reserve, commit uint64, err error) {
	reserve, err = p.expectInteger()
	if err != nil {
		return 0, 0, err
	}
	tok := p.lex.Next()
	if tok.Kind != TokComma {
		p.lex.Pushback(tok)
		return reserve, 0, nil
	}
	commit, err = p.expectInteger()
	if err != nil {
		return 0, 0, err
	}
	return reserve, commit, nil
}

// parseLibraryOrName parses "identifier [BASE = integer]". Absence of an
// identifier leaves name empty and base 0 without consuming the token.
func (p *parser) parseLibraryOrName() (name string, base uint64, err error) {
	tok := p.lex.Next()
	if tok.Kind != TokIdentifier {
		p.lex.Pushback(tok)
		return "", 0, nil
	}
	name = tok.Value

	baseTok := p.lex.Next()
	if baseTok.Kind != TokBase {
		p.lex.Pushback(baseTok)
		return name, 0, nil
	}
	eq := p.lex.Next()
	if eq.Kind != TokEqual {
		return "", 0, fmt.Errorf("%w: after BASE", ErrExpectedEqual)
	}
	base, err = p.expectInteger()
	if err != nil {
		return "", 0, err
	}
	return name, base, nil
}

// parseVersion parses "major[.minor]"; each component is 32-bit decimal.
func (p *parser) parseVersion() (major, minor uint32, err error) {
	tok, err := p.expectIdentifier()
	if err != nil {
		return 0, 0, err
	}
	majorStr, minorStr, hasMinor := strings.Cut(tok.Value, ".")
	major64, err := strconv.ParseUint(majorStr, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrExpectedInteger, majorStr)
	}
	if !hasMinor {
		return uint32(major64), 0, nil
	}
	minor64, err := strconv.ParseUint(minorStr, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrExpectedInteger, minorStr)
	}
	return uint32(major64), uint32(minor64), nil
}

func (p *parser) expectIdentifier() (Token, error) {
	tok := p.lex.Next()
	if tok.Kind != TokIdentifier {
		return Token{}, fmt.Errorf("%w: found %s", ErrExpectedIdentifier, describe(tok))
	}
	return tok, nil
}

func (p *parser) expectInteger() (uint64, error) {
	tok, err := p.expectIdentifier()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(tok.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrExpectedInteger, tok.Value)
	}
	return v, nil
}

func isDecorated(sym string) bool {
	return strings.HasPrefix(sym, "@") || strings.HasPrefix(sym, "?") || strings.Contains(sym, "@")
}

func describe(tok Token) string {
	if tok.Value != "" {
		return tok.Value
	}
	return fmt.Sprintf("token(%d)", tok.Kind)
}
