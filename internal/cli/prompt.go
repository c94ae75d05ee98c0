package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	apperrors "options-trader/internal/errors"
)

// Prompter collects validated scalar input from the trader.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a prompter reading from in and writing to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) readLine(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", apperrors.Wrap(apperrors.ErrNoSelection, "input closed")
	}
	return strings.TrimSpace(line), nil
}

// String prompts until a non-empty line is entered.
func (p *Prompter) String(label string) (string, error) {
	for {
		line, err := p.readLine(label)
		if err != nil {
			return "", err
		}
		if line != "" {
			return line, nil
		}
		fmt.Fprintln(p.out, "A value is required.")
	}
}

// Float prompts until a positive number is entered.
func (p *Prompter) Float(label string) (float64, error) {
	for {
		line, err := p.readLine(label)
		if err != nil {
			return 0, err
		}
		v, convErr := strconv.ParseFloat(line, 64)
		if convErr != nil || v <= 0 {
			fmt.Fprintln(p.out, "Enter a positive number.")
			continue
		}
		return v, nil
	}
}

// Choice prompts until one of the allowed values is entered. Matching is
// case-insensitive; the canonical value is returned.
func (p *Prompter) Choice(label string, allowed []string) (string, error) {
	for {
		line, err := p.readLine(fmt.Sprintf("%s (%s)", label, strings.Join(allowed, "/")))
		if err != nil {
			return "", err
		}
		for _, a := range allowed {
			if strings.EqualFold(line, a) {
				return a, nil
			}
		}
		fmt.Fprintf(p.out, "Enter one of: %s\n", strings.Join(allowed, ", "))
	}
}
