package control

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/microcosm-cc/bluemonday"

	"github.com/bilirumine/engine/internal/state"
)

// ParseError wraps a malformed input line: the read loop logs and
// continues rather than treating it as fatal.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("control: parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips any markup from free-text fields that round-trip from an
// untrusted host (tags, prompts, descriptions) before they reach a log line
// or a completion message.
func Sanitize(s string) string {
	return sanitizer.Sanitize(s)
}

// Reader decodes one state.State per input line. A single mutex guards the
// scanner even though reads are normally single-consumer; it protects
// against the scanner being driven from more than one place (e.g. a
// concurrent shutdown drain).
type Reader struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
}

// NewReader wraps r (normally stdin) for line-delimited control-message
// input. The scanner's buffer is raised to accommodate large inline base64
// `data` fields.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	return &Reader{scanner: scanner}
}

// ReadLine blocks for the next line and decodes it into a state.State. EOF
// is returned unwrapped so callers can distinguish clean shutdown from a
// parse failure.
func (r *Reader) ReadLine() (state.State, error) {
	r.mu.Lock()
	ok := r.scanner.Scan()
	line := r.scanner.Text()
	err := r.scanner.Err()
	r.mu.Unlock()

	if !ok {
		if err != nil {
			return state.State{}, err
		}
		return state.State{}, io.EOF
	}

	var st state.State
	if err := sonic.UnmarshalString(line, &st); err != nil {
		return state.State{}, &ParseError{Line: line, Err: err}
	}

	st.Tags = Sanitize(st.Tags)
	st.Positive = Sanitize(st.Positive)
	st.Negative = Sanitize(st.Negative)
	for i, p := range st.Prompts {
		st.Prompts[i] = Sanitize(p)
	}
	return st, nil
}

// Writer emits one JSON line per call, atomically with respect to other
// writes on the same Writer: ordering within one stream is preserved,
// ordering across streams is not.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w (normally stdout or stderr).
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Emit marshals v and writes it as one newline-terminated line.
func (w *Writer) Emit(v interface{}) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("control: marshal: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.w.Write(data)
	return err
}

// EmitDiagnostic writes a free-form error line to an error stream,
// sanitizing it first since diagnostics may echo host-supplied text.
func (w *Writer) EmitDiagnostic(format string, args ...interface{}) error {
	line := fmt.Sprintf(format, args...)
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintln(w.w, Sanitize(line))
	return err
}
