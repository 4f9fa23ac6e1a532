// FILE: peerxlat/src/internal/ruleset/parser.go
package ruleset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"peerxlat/src/internal/netaddr"
)

const (
	initialCapacity = 8
	maxLineLength   = 64 * 1024
	// rawPreviewLength bounds ParseError.Raw for lines too long to keep
	rawPreviewLength = 120
)

var errLineTooLong = errors.New("line too long")

// Option customises parsing.
type Option func(*parser)

// WithStopPhrase sets the literal phrase that turns a "for" clause into a
// stopper rule. Empty keeps the default.
func WithStopPhrase(phrase string) Option {
	return func(p *parser) {
		if phrase != "" {
			p.stopPhrase = phrase
		}
	}
}

// WithMaxRules caps the number of rules a file may hold. Zero means no cap.
func WithMaxRules(n int) Option {
	return func(p *parser) {
		p.maxRules = n
	}
}

type parser struct {
	stopPhrase string
	maxRules   int
}

// Load reads and parses the rules file at path. The first failure aborts the
// whole load; there is never a partial ruleset.
func Load(path string, opts ...Option) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Cause: ErrFileUnavailable, Reason: path, Err: err}
	}

	rules, err := Parse(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, err
	}

	return &Ruleset{Rules: rules, Source: path, LoadedAt: time.Now()}, nil
}

// Parse reads a ruleset in file order. Comment lines (first non-blank byte
// '#') and blank lines are skipped. Any malformed line fails the whole parse
// with a *ParseError.
func Parse(r io.Reader, opts ...Option) ([]Rule, error) {
	p := &parser{stopPhrase: DefaultStopPhrase}
	for _, opt := range opts {
		opt(p)
	}

	rules := make([]Rule, 0, initialCapacity)

	var preview string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 512), maxLineLength)
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		advance, token, err := bufio.ScanLines(data, atEOF)
		if err == nil && token == nil && !atEOF && len(data) >= maxLineLength {
			preview = strings.ToValidUTF8(string(data[:rawPreviewLength]), "")
			return 0, nil, errLineTooLong
		}
		return advance, token, err
	})

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		rule, ok, err := p.parseLine(line)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Line = lineNo
				pe.Raw = line
			}
			return nil, err
		}
		if !ok {
			continue
		}

		if p.maxRules > 0 && len(rules) >= p.maxRules {
			return nil, &ParseError{
				Cause:  ErrAllocation,
				Line:   lineNo,
				Raw:    line,
				Reason: fmt.Sprintf("more than %d rules", p.maxRules),
			}
		}
		rules = append(rules, rule)
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, errLineTooLong) || errors.Is(err, bufio.ErrTooLong) {
			raw := preview
			if lineNo == 0 {
				raw = strings.TrimPrefix(raw, "\ufeff")
			}
			return nil, &ParseError{
				Cause:  ErrGrammar,
				Line:   lineNo + 1,
				Raw:    raw,
				Reason: fmt.Sprintf("line longer than %d bytes", maxLineLength),
			}
		}
		return nil, &ParseError{Cause: ErrFileUnavailable, Line: lineNo + 1, Reason: "read failed", Err: err}
	}

	return slices.Clip(rules), nil
}

// parseLine returns ok=false for comments and blank lines.
func (p *parser) parseLine(line string) (Rule, bool, error) {
	var rule Rule

	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed[0] == '#' {
		return rule, false, nil
	}

	c := &cursor{line: strings.TrimRight(line, "\r")}

	if err := c.keyword("for"); err != nil {
		return rule, false, err
	}
	forWhom, err := c.prefix("for_whom")
	if err != nil {
		return rule, false, err
	}
	rule.ForWhom = forWhom

	if strings.Contains(c.rest(), p.stopPhrase) {
		rule.Stopper = true
		return rule, true, nil
	}

	if err := c.keyword("translate"); err != nil {
		return rule, false, err
	}
	from, err := c.prefix("from")
	if err != nil {
		return rule, false, err
	}
	rule.From = from

	if err := c.keyword("to"); err != nil {
		return rule, false, err
	}
	to, err := c.address("to")
	if err != nil {
		return rule, false, err
	}
	rule.To = to

	return rule, true, nil
}

// cursor walks an immutable line. Keywords are located by substring search
// from the current position, so they may appear anywhere after it.
type cursor struct {
	line string
	pos  int
}

func (c *cursor) rest() string {
	return c.line[c.pos:]
}

// keyword advances past the next occurrence of kw and the whitespace that
// must follow it.
func (c *cursor) keyword(kw string) error {
	idx := strings.Index(c.rest(), kw)
	if idx < 0 {
		return &ParseError{Cause: ErrGrammar, Reason: fmt.Sprintf("missing keyword %q", kw)}
	}
	c.pos += idx + len(kw)
	if c.skipSpace() == 0 {
		return &ParseError{Cause: ErrGrammar, Reason: fmt.Sprintf("expected whitespace after %q", kw)}
	}
	return nil
}

func (c *cursor) skipSpace() int {
	start := c.pos
	for c.pos < len(c.line) && (c.line[c.pos] == ' ' || c.line[c.pos] == '\t') {
		c.pos++
	}
	return c.pos - start
}

// address consumes an address literal terminated by whitespace, '/' or the
// end of the line.
func (c *cursor) address(field string) (netaddr.Addr, error) {
	start := c.pos
	for c.pos < len(c.line) {
		ch := c.line[c.pos]
		if ch == ' ' || ch == '\t' || ch == '/' {
			break
		}
		c.pos++
	}

	token := c.line[start:c.pos]
	if token == "" {
		return netaddr.Addr{}, &ParseError{Cause: ErrAddressSyntax, Reason: fmt.Sprintf("missing %s address", field)}
	}

	a, err := netaddr.ParseAddr(token)
	if err != nil {
		return netaddr.Addr{}, &ParseError{Cause: ErrAddressSyntax, Reason: fmt.Sprintf("bad %s address", field), Err: err}
	}
	return a, nil
}

// prefix consumes ADDRESS "/" INTEGER. Whitespace may separate the address
// from the slash.
func (c *cursor) prefix(field string) (netaddr.Prefix, error) {
	a, err := c.address(field)
	if err != nil {
		return netaddr.Prefix{}, err
	}

	c.skipSpace()
	if c.pos >= len(c.line) || c.line[c.pos] != '/' {
		return netaddr.Prefix{}, &ParseError{Cause: ErrGrammar, Reason: fmt.Sprintf("missing '/' after %s address", field)}
	}
	c.pos++

	bits, err := c.bits(field)
	if err != nil {
		return netaddr.Prefix{}, err
	}

	return netaddr.Prefix{Addr: a, Bits: bits}, nil
}

func (c *cursor) bits(field string) (int, error) {
	negative := false
	if c.pos < len(c.line) && c.line[c.pos] == '-' {
		negative = true
		c.pos++
	}

	start := c.pos
	for c.pos < len(c.line) && c.line[c.pos] >= '0' && c.line[c.pos] <= '9' {
		c.pos++
	}
	digits := c.line[start:c.pos]
	if digits == "" {
		return 0, &ParseError{Cause: ErrGrammar, Reason: fmt.Sprintf("missing %s prefix length", field)}
	}

	n, err := strconv.Atoi(digits)
	if err != nil || negative || n > netaddr.MaxBits {
		return 0, &ParseError{
			Cause:  ErrRange,
			Reason: fmt.Sprintf("%s prefix length %s not in [0, %d]", field, c.line[start-boolToInt(negative):c.pos], netaddr.MaxBits),
		}
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
