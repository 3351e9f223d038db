// Package entry provides resolver.MissingDataProvider implementations that
// collect astrometry the catalogs could not supply.
package entry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/litescript/ls-constellations/internal/astro"
	"github.com/litescript/ls-constellations/internal/resolver"
)

// ErrNoAnswer means a provider has nothing for this star and the next
// provider in a Chain may be asked.
var ErrNoAnswer = errors.New("no answer for star")

type line struct {
	text string
	err  error
}

// Prompt asks an operator line by line. Reads happen on one background
// goroutine so a cancelled context releases a waiting ask; a line typed
// after that is kept for the next question.
type Prompt struct {
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan line
}

// NewPrompt creates a line prompt reading answers from in.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out, lines: make(chan line, 1)}
}

func (p *Prompt) readLines() {
	for {
		text, err := p.in.ReadString('\n')
		p.lines <- line{text: text, err: err}
		if err != nil {
			close(p.lines)
			return
		}
	}
}

// next waits for the next input line or for ctx to end.
func (p *Prompt) next(ctx context.Context) (string, error) {
	p.once.Do(func() { go p.readLines() })
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

// Position implements resolver.MissingDataProvider.
func (p *Prompt) Position(ctx context.Context, identifier string) (resolver.ManualPosition, error) {
	fmt.Fprintf(p.out, "Star %s has no data.\n", identifier)

	var pos resolver.ManualPosition
	var err error
	if pos.RA, err = p.ask(ctx, "RA in hours (00h00m00s) or degrees: ", astro.ParseRA); err != nil {
		return pos, err
	}
	if pos.Dec, err = p.ask(ctx, "Dec in degrees (00d00m00s): ", astro.ParseDec); err != nil {
		return pos, err
	}
	if pos.PMRA, err = p.ask(ctx, "PM RA (mas/yr): ", parseNumber); err != nil {
		return pos, err
	}
	if pos.PMDec, err = p.ask(ctx, "PM Dec (mas/yr): ", parseNumber); err != nil {
		return pos, err
	}
	if pos.Distance, err = p.ask(ctx, "Distance in pc: ", parseNumber); err != nil {
		return pos, err
	}
	return pos, nil
}

// Distance implements resolver.MissingDataProvider.
func (p *Prompt) Distance(ctx context.Context, identifier string) (float64, error) {
	fmt.Fprintf(p.out, "No distance anywhere for %s.\n", identifier)
	return p.ask(ctx, "Distance in pc: ", parseNumber)
}

func (p *Prompt) ask(ctx context.Context, label string, parse func(string) (float64, error)) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	fmt.Fprint(p.out, label)

	text, err := p.next(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}
	if err != nil && !(errors.Is(err, io.EOF) && text != "") {
		return 0, fmt.Errorf("%w: %s: %v", resolver.ErrIncompleteEntry, strings.TrimSpace(label), err)
	}

	v, err := parse(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", resolver.ErrIncompleteEntry, strings.TrimSpace(label), err)
	}
	return v, nil
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}
