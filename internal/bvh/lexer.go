package bvh

import (
	"bufio"
	"io"
	"strings"
)

const maxLineBytes = 1 << 20

// lexer splits the hierarchy section into whitespace separated tokens while
// tracking line numbers, and hands out whole lines for the motion section.
type lexer struct {
	sc      *bufio.Scanner
	line    int
	pending []string
	tokLine int
}

func newLexer(r io.Reader) *lexer {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &lexer{sc: sc}
}

func (lx *lexer) scan() bool {
	if !lx.sc.Scan() {
		return false
	}
	lx.line++
	return true
}

func (lx *lexer) text() string {
	text := lx.sc.Text()
	if lx.line == 1 {
		text = strings.TrimPrefix(text, "\ufeff")
	}
	return text
}

// next returns the next token and the line it appeared on.
func (lx *lexer) next() (string, int, bool) {
	for len(lx.pending) == 0 {
		if !lx.scan() {
			return "", lx.line, false
		}
		lx.pending = strings.Fields(lx.text())
		lx.tokLine = lx.line
	}
	tok := lx.pending[0]
	lx.pending = lx.pending[1:]
	return tok, lx.tokLine, true
}

// rest consumes the remaining tokens of the current line.
func (lx *lexer) rest() []string {
	out := lx.pending
	lx.pending = nil
	return out
}

func (lx *lexer) unread(tok string) {
	lx.pending = append([]string{tok}, lx.pending...)
}

// nextLine returns the next non-blank line. Any unconsumed tokens of the
// current line are discarded.
func (lx *lexer) nextLine() (string, bool) {
	lx.pending = nil
	for lx.scan() {
		text := strings.TrimSpace(lx.text())
		if text != "" {
			return text, true
		}
	}
	return "", false
}

// rawLine returns the next line trimmed, blank or not.
func (lx *lexer) rawLine() (string, bool) {
	lx.pending = nil
	if !lx.scan() {
		return "", false
	}
	return strings.TrimSpace(lx.text()), true
}

func (lx *lexer) err() error {
	return lx.sc.Err()
}
