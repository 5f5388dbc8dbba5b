package maincmd

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/mna/callstack/lang/callstackerr"
	"github.com/mna/callstack/lang/ir"
)

// ParseIR reads one IR module from text and returns its top-level items, in
// source order. spec.md §1 treats the real IR parser as an external
// collaborator specified only at its output interface ("IR parser ...
// specified only at their output interface, not their internals"), and
// lang/ir accordingly never parses text, only models already-parsed items.
// No available third-party library reads
// whatever textual IR a real upstream compiler would emit, so this CLI
// package supplies a small, self-contained stand-in grammar instead of
// porting any production IR syntax:
//
//	declare <name> <sig>
//	define <name> <sig>
//	  call <name>
//	  icall <sig>
//	  bcall <name>
//	  asm <text>
//	  label
//	  ; comment text
//	enddefine
//
// <sig> is "(<type>,<type>,...)-><type-or-void>"; <type> is "iN", "ptr",
// "erased", "fn<sig>", or a bare name (ir.Named). A blank line, or a line
// whose first non-space character is ';' outside a define body, is skipped.
func ParseIR(text string) ([]ir.Item, error) {
	p := &irParser{sc: bufio.NewScanner(strings.NewReader(text))}
	return p.run()
}

type irParser struct {
	sc   *bufio.Scanner
	line int
}

func (p *irParser) run() ([]ir.Item, error) {
	var items []ir.Item
	for p.sc.Scan() {
		p.line++
		line := strings.TrimSpace(p.sc.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "declare "):
			it, err := p.parseDeclare(line)
			if err != nil {
				return nil, err
			}
			items = append(items, it)

		case strings.HasPrefix(line, "define "):
			it, err := p.parseDefine(line)
			if err != nil {
				return nil, err
			}
			items = append(items, it)

		default:
			items = append(items, ir.Other{})
		}
	}
	if err := p.sc.Err(); err != nil {
		return nil, callstackerr.New(callstackerr.Parse, "", err)
	}
	return items, nil
}

func (p *irParser) parseDeclare(line string) (ir.Item, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "declare "))
	name, sigText, _ := strings.Cut(rest, " ")
	if name == "" {
		return nil, p.errf("declare: missing name")
	}
	var sig *ir.Signature
	if sigText != "" {
		s, err := parseIRSignature(sigText)
		if err != nil {
			return nil, p.errf("declare %s: %v", name, err)
		}
		sig = &s
	}
	return &ir.Declare{Name: name, Sig: sig}, nil
}

func (p *irParser) parseDefine(line string) (ir.Item, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "define "))
	name, sigText, _ := strings.Cut(rest, " ")
	if name == "" {
		return nil, p.errf("define: missing name")
	}
	var sig *ir.Signature
	if sigText != "" {
		s, err := parseIRSignature(sigText)
		if err != nil {
			return nil, p.errf("define %s: %v", name, err)
		}
		sig = &s
	}

	def := &ir.Define{Name: name, Sig: sig}
	for p.sc.Scan() {
		p.line++
		body := strings.TrimSpace(p.sc.Text())
		if body == "" {
			continue
		}
		if body == "enddefine" {
			return def, nil
		}
		stmt, err := p.parseStatement(body)
		if err != nil {
			return nil, err
		}
		def.Body = append(def.Body, stmt)
	}
	return nil, p.errf("define %s: missing enddefine", name)
}

func (p *irParser) parseStatement(line string) (ir.Statement, error) {
	switch {
	case strings.HasPrefix(line, ";"):
		return ir.Comment{Text: strings.TrimSpace(strings.TrimPrefix(line, ";"))}, nil
	case line == "label":
		return ir.Label{}, nil
	case strings.HasPrefix(line, "call "):
		return ir.DirectCall{Name: strings.TrimSpace(strings.TrimPrefix(line, "call "))}, nil
	case strings.HasPrefix(line, "bcall "):
		return ir.BitcastCall{Name: strings.TrimSpace(strings.TrimPrefix(line, "bcall "))}, nil
	case strings.HasPrefix(line, "icall "):
		sigText := strings.TrimSpace(strings.TrimPrefix(line, "icall "))
		sig, err := parseIRSignature(sigText)
		if err != nil {
			return nil, p.errf("icall: %v", err)
		}
		return ir.IndirectCall{Sig: sig}, nil
	case strings.HasPrefix(line, "asm "):
		return ir.InlineAsm{Text: strings.TrimSpace(strings.TrimPrefix(line, "asm "))}, nil
	default:
		return ir.Other{}, nil
	}
}

func (p *irParser) errf(format string, args ...interface{}) error {
	return callstackerr.New(callstackerr.Parse, "", fmt.Errorf("line %d: %s", p.line, fmt.Sprintf(format, args...)))
}

// parseIRSignature parses "(<type>,<type>,...)-><type-or-void>" or a bare
// "(<type>,...)" with no return type (void).
func parseIRSignature(text string) (ir.Signature, error) {
	text = strings.TrimSpace(text)
	params, rest, err := splitIRParams(text)
	if err != nil {
		return ir.Signature{}, err
	}

	var sig ir.Signature
	for _, ptext := range params {
		ptext = strings.TrimSpace(ptext)
		if ptext == "" {
			continue
		}
		t, err := parseIRType(ptext)
		if err != nil {
			return ir.Signature{}, err
		}
		sig.Params = append(sig.Params, t)
	}

	rest = strings.TrimSpace(rest)
	if rest != "" {
		rest = strings.TrimPrefix(rest, "->")
		rest = strings.TrimSpace(rest)
		if rest != "" && rest != "void" {
			t, err := parseIRType(rest)
			if err != nil {
				return ir.Signature{}, err
			}
			sig.Return = t
		}
	}
	return sig, nil
}

// splitIRParams splits "(a,b,c)<trailing>" into ["a","b","c"] and "<trailing>".
func splitIRParams(text string) ([]string, string, error) {
	if !strings.HasPrefix(text, "(") {
		return nil, "", fmt.Errorf("signature must start with '(': %q", text)
	}
	depth := 0
	for i, r := range text {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				inner := text[1:i]
				var params []string
				if strings.TrimSpace(inner) != "" {
					params = splitIRTopLevel(inner)
				}
				return params, text[i+1:], nil
			}
		}
	}
	return nil, "", fmt.Errorf("unbalanced parentheses in signature: %q", text)
}

// splitIRTopLevel splits s on commas that are not nested inside parentheses.
func splitIRTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

func parseIRType(text string) (ir.Type, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "ptr":
		// The pointee type is never recoverable from this stand-in syntax
		// alone; an arbitrary byte-width integer is as good a placeholder as
		// any since nothing in the graph builder inspects pointee width.
		return ir.Pointer{Elem: ir.Int{Width: 8}}, nil
	case text == "erased":
		return ir.Erased{}, nil
	case strings.HasPrefix(text, "ptr(") && strings.HasSuffix(text, ")"):
		elem, err := parseIRType(text[4 : len(text)-1])
		if err != nil {
			return nil, err
		}
		return ir.Pointer{Elem: elem}, nil
	case strings.HasPrefix(text, "fn(") || text == "fn":
		sig, err := parseIRSignature(strings.TrimPrefix(text, "fn"))
		if err != nil {
			return nil, err
		}
		return ir.Func{Sig: sig}, nil
	case strings.HasPrefix(text, "i") && isIRDigits(text[1:]):
		w, err := strconv.Atoi(text[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid integer type %q: %v", text, err)
		}
		return ir.Int{Width: w}, nil
	case text == "":
		return nil, fmt.Errorf("empty type")
	default:
		return ir.Named{Name: text}, nil
	}
}

func isIRDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
