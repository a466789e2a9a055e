// Package prompt asks the operator for the working and storage directories
// and for confirmation before orphans are archived. When stdin is not a
// terminal nothing is asked: defaults apply and confirmations are declined.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"mediasync/internal/config"
)

// ErrNoInput is returned when a required answer cannot be obtained.
var ErrNoInput = errors.New("no answer available")

const maxAttempts = 3

// Prompter reads answers from in and writes questions to out.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// New builds a Prompter that is interactive only when in is a terminal.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, interactive: IsTerminal(in)}
}

// NewInteractive builds a Prompter that always asks, regardless of in.
func NewInteractive(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, interactive: true}
}

// IsTerminal reports whether v is an *os.File attached to a terminal.
func IsTerminal(v any) bool {
	file, ok := v.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Interactive reports whether questions are actually asked.
func (p *Prompter) Interactive() bool { return p.interactive }

// WorkingDir asks for the working directory, defaulting to def. Surrounding
// quotes from drag-and-drop are stripped.
func (p *Prompter) WorkingDir(def string) (string, error) {
	if !p.interactive {
		return def, nil
	}
	answer, err := p.ask(fmt.Sprintf("Working directory [%s]: ", def))
	if err != nil {
		return "", err
	}
	if answer = config.TrimQuotes(answer); answer == "" {
		return def, nil
	}
	return answer, nil
}

// StorageDir asks for the storage directory. There is no default; an empty
// answer is asked again a few times before giving up.
func (p *Prompter) StorageDir() (string, error) {
	if !p.interactive {
		return "", fmt.Errorf("%w: storage directory is required (set --storage or paths.storage_dir)", ErrNoInput)
	}
	for range maxAttempts {
		answer, err := p.ask("Storage directory: ")
		if err != nil {
			return "", err
		}
		if answer = config.TrimQuotes(answer); answer != "" {
			return answer, nil
		}
		fmt.Fprintln(p.out, "A storage directory is required.")
	}
	return "", fmt.Errorf("%w: storage directory is required", ErrNoInput)
}

// ConfirmOrphans lists orphaned derived files and asks whether to archive them.
// The default is no.
func (p *Prompter) ConfirmOrphans(names []string) (bool, error) {
	if len(names) == 0 || !p.interactive {
		return false, nil
	}
	fmt.Fprintf(p.out, "%d derived file(s) have no matching source:\n", len(names))
	for _, name := range names {
		fmt.Fprintf(p.out, "  %s\n", name)
	}
	return p.Confirm("Archive them to Converted/ under their own names?")
}

// Confirm asks a yes/no question defaulting to no.
func (p *Prompter) Confirm(question string) (bool, error) {
	if !p.interactive {
		return false, nil
	}
	answer, err := p.ask(strings.TrimSpace(question) + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *Prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read answer: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		fmt.Fprintln(p.out)
	}
	return strings.TrimSpace(line), nil
}
