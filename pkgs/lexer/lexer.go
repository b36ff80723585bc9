package lexer

import (
	"fmt"
	"io"
	"strings"
)

// ASCII character lookup tables for fast classification
var isWhitespace [128]bool

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isWhitespace[i] = ch == ' ' || ch == '\t' || ch == '\f' || ch == '\v'
	}
}

func whitespace(r rune) bool {
	return r < 128 && isWhitespace[r]
}

// Line is one logical script line: continuations joined, quotes resolved.
type Line struct {
	Number  int      // 1-based physical line the logical line starts on
	Comment bool     // line starts with ';'
	Name    string   // instruction name, empty for comments
	Args    []string // arguments with quotes removed; for comments the comment text
	Raw     string   // the joined logical line as written
}

// Warning is a non-fatal lexical finding
type Warning struct {
	Line    int
	Message string
}

// Lexer turns script text into logical lines
type Lexer struct {
	input    string
	warnings []Warning
}

// New creates a new Lexer over everything reader yields
func New(reader io.Reader) (*Lexer, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return NewString(string(data)), nil
}

// NewString creates a new Lexer over script text
func NewString(input string) *Lexer {
	return &Lexer{input: input}
}

// Split is a convenience wrapper returning the logical lines of text
func Split(text string) []Line {
	return NewString(text).Lines()
}

// Warnings returns warnings collected by the last call to Lines
func (l *Lexer) Warnings() []Warning {
	return l.warnings
}

// Lines normalizes line endings, drops blank lines, joins '\' continuations and
// splits each logical line into its instruction name and arguments.
func (l *Lexer) Lines() []Line {
	l.warnings = nil

	var lines []Line
	for _, logical := range l.join() {
		lines = append(lines, l.splitLine(logical.number, logical.text))
	}
	return lines
}

type logicalLine struct {
	number int
	text   string
}

// join applies continuation. A physical line ending in '\' loses the backslash and
// is concatenated with the next non-blank line as-is.
func (l *Lexer) join() []logicalLine {
	text := strings.ReplaceAll(l.input, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var (
		out     []logicalLine
		pending strings.Builder
		start   int
		joining bool
	)

	for i, physical := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(physical)
		if trimmed == "" {
			continue
		}
		if !joining {
			start = i + 1
		}

		if strings.HasSuffix(trimmed, `\`) {
			pending.WriteString(strings.TrimSuffix(trimmed, `\`))
			joining = true
			continue
		}

		pending.WriteString(trimmed)
		out = append(out, logicalLine{number: start, text: pending.String()})
		pending.Reset()
		joining = false
	}

	if joining {
		l.warn(start, "continuation at end of script")
		if rest := strings.TrimSpace(pending.String()); rest != "" {
			out = append(out, logicalLine{number: start, text: rest})
		}
	}

	return out
}

func (l *Lexer) splitLine(number int, text string) Line {
	line := Line{Number: number, Raw: text}

	if strings.HasPrefix(text, ";") {
		line.Comment = true
		line.Args = []string{strings.TrimSpace(text[1:])}
		return line
	}

	words := l.words(number, text)
	if len(words) == 0 {
		return line
	}
	line.Name = words[0]
	if len(words) > 1 {
		line.Args = words[1:]
	}
	return line
}

// words splits text on whitespace. Double quotes group characters (including
// whitespace) into the current word and are removed; "" yields an empty word.
func (l *Lexer) words(number int, text string) []string {
	var (
		words   []string
		current strings.Builder
		inWord  bool
		quoted  bool
	)

	for _, r := range text {
		switch {
		case r == '"':
			quoted = !quoted
			inWord = true
		case whitespace(r) && !quoted:
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quoted {
		l.warn(number, fmt.Sprintf("unterminated quote, rest of line taken as one argument %q", current.String()))
	}
	if inWord {
		words = append(words, current.String())
	}
	return words
}

func (l *Lexer) warn(line int, message string) {
	l.warnings = append(l.warnings, Warning{Line: line, Message: message})
}
