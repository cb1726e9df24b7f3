package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/use-agent/profilescout/render"
)

// Outcome is the result of one pagination attempt.
type Outcome int

const (
	// NoMatch means the tactic found nothing to act on; the next tactic runs.
	NoMatch Outcome = iota
	// Advanced means the page moved on; the chain stops.
	Advanced
	// Terminal means the tactic recognised the last page; the chain stops
	// and discovery ends.
	Terminal
)

func (o Outcome) String() string {
	switch o {
	case Advanced:
		return "advanced"
	case Terminal:
		return "terminal"
	default:
		return "no-match"
	}
}

// Tactic is one way of moving a directory to its next page.
type Tactic interface {
	Name() string
	Advance(ctx context.Context, r render.Renderer) (Outcome, error)
}

const (
	controlSelector    = "button, a, [role='button']"
	paginationSelector = `.v-pagination, [class*="pagination"], [aria-label*="pagination"], [aria-label*="Pagination"]`
	activeSelector     = `[aria-current="page"], [class*="active"]`

	// maxControlText bounds the text of a pager control; longer text is a
	// card or a sentence.
	maxControlText = 24
)

// DefaultTactics returns the pagination chain in priority order.
func DefaultTactics(opts Options) []Tactic {
	attempts := opts.ScrollAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return []Tactic{
		&labeledNext{settle: opts.ClickSettle, marker: opts.Marker},
		&paginationNext{settle: opts.ClickSettle, marker: opts.Marker},
		&pageNumber{settle: opts.ClickSettle},
		&infiniteScroll{settle: opts.ScrollSettle, attempts: attempts},
	}
}

// labeledNext clicks any visible, enabled control labelled "next".
type labeledNext struct {
	settle time.Duration
	marker string
}

func (t *labeledNext) Name() string { return "labeled-next" }

func (t *labeledNext) Advance(ctx context.Context, r render.Renderer) (Outcome, error) {
	controls, err := r.Elements(ctx, controlSelector)
	if err != nil {
		return NoMatch, err
	}
	return clickFirstNext(ctx, controls, t.settle, t.marker)
}

// paginationNext looks for the next control inside the pagination region.
type paginationNext struct {
	settle time.Duration
	marker string
}

func (t *paginationNext) Name() string { return "pagination-next" }

func (t *paginationNext) Advance(ctx context.Context, r render.Renderer) (Outcome, error) {
	region, err := paginationRegion(ctx, r)
	if err != nil || region == nil {
		return NoMatch, err
	}
	controls, err := region.Elements(controlSelector)
	if err != nil {
		return NoMatch, err
	}
	return clickFirstNext(ctx, controls, t.settle, t.marker)
}

// pageNumber reads the active page number from the pagination region and
// clicks the control for the page after it.
type pageNumber struct {
	settle time.Duration
}

func (t *pageNumber) Name() string { return "page-number" }

func (t *pageNumber) Advance(ctx context.Context, r render.Renderer) (Outcome, error) {
	region, err := paginationRegion(ctx, r)
	if err != nil || region == nil {
		return NoMatch, err
	}

	controls, err := region.Elements(controlSelector)
	if err != nil {
		return NoMatch, err
	}
	numbered := make(map[int]render.Element)
	highest := 0
	for _, c := range controls {
		n, ok := pageNumberOf(c)
		if !ok {
			continue
		}
		if _, dup := numbered[n]; !dup {
			numbered[n] = c
		}
		if n > highest {
			highest = n
		}
	}
	if len(numbered) == 0 {
		return NoMatch, nil
	}

	active, ok := activePage(region, controls)
	if !ok {
		return NoMatch, nil
	}
	next, exists := numbered[active+1]
	if !exists || active >= highest {
		return Terminal, nil
	}
	if err := next.Click(ctx); err != nil {
		return NoMatch, err
	}
	return Advanced, render.Settle(ctx, t.settle)
}

// infiniteScroll scrolls to the bottom and waits for the document to grow.
type infiniteScroll struct {
	settle   time.Duration
	attempts int
}

func (t *infiniteScroll) Name() string { return "infinite-scroll" }

func (t *infiniteScroll) Advance(ctx context.Context, r render.Renderer) (Outcome, error) {
	before, err := documentHeight(ctx, r)
	if err != nil {
		return NoMatch, err
	}
	for i := 0; i < t.attempts; i++ {
		if _, err := r.Run(ctx, render.ScriptScrollToBottom); err != nil {
			return NoMatch, err
		}
		if err := render.Settle(ctx, t.settle); err != nil {
			return NoMatch, err
		}
		after, err := documentHeight(ctx, r)
		if err != nil {
			return NoMatch, err
		}
		if after > before {
			return Advanced, nil
		}
	}
	return NoMatch, nil
}

func documentHeight(ctx context.Context, r render.Renderer) (int64, error) {
	n, err := r.Run(ctx, render.ScriptDocumentHeight)
	if err != nil {
		return 0, err
	}
	h, ok := n.Int()
	if !ok {
		return 0, fmt.Errorf("discovery: document height is not a number: %s", n.String())
	}
	return h, nil
}

// clickFirstNext clicks the first control that reads as "next". A control
// whose click fails is skipped in favour of the following one.
func clickFirstNext(ctx context.Context, controls []render.Element, settle time.Duration, marker string) (Outcome, error) {
	var lastErr error
	for _, c := range controls {
		if !isNextControl(c, marker) {
			continue
		}
		if err := c.Click(ctx); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return NoMatch, ctx.Err()
			}
			continue
		}
		return Advanced, render.Settle(ctx, settle)
	}
	if lastErr != nil {
		return NoMatch, lastErr
	}
	return NoMatch, nil
}

// isNextControl reports whether el is an operable "next page" control.
// Links to detail pages never qualify, whatever their text says.
func isNextControl(el render.Element, marker string) bool {
	if marker != "" && strings.Contains(lowerAttr(el, "href"), strings.ToLower(marker)) {
		return false
	}

	text, _ := el.Text()
	text = strings.ToLower(strings.TrimSpace(text))
	if utf8.RuneCountInString(text) > maxControlText {
		text = ""
	}
	label := lowerAttr(el, "aria-label")

	labelled := hasNextWord(text) ||
		strings.Contains(text, "→") ||
		strings.Contains(text, "›") ||
		text == ">" ||
		hasNextWord(label)
	if !labelled {
		return false
	}

	class := lowerAttr(el, "class")
	if strings.Contains(class, "disabled") || strings.Contains(class, "prev") {
		return false
	}
	if lowerAttr(el, "aria-disabled") == "true" {
		return false
	}
	return el.Visible() && el.Enabled()
}

// hasNextWord reports whether s contains "next" or "forward" as a whole
// word, so "Next page" matches and "NextGen" does not.
func hasNextWord(s string) bool {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if w == "next" || w == "forward" {
			return true
		}
	}
	return false
}

func paginationRegion(ctx context.Context, r render.Renderer) (render.Element, error) {
	regions, err := r.Elements(ctx, paginationSelector)
	if err != nil || len(regions) == 0 {
		return nil, err
	}
	return regions[0], nil
}

// activePage finds the current page number: a numbered control marked
// active or aria-current, or any marked element in the region whose text is
// a page number.
func activePage(region render.Element, controls []render.Element) (int, bool) {
	for _, c := range controls {
		if n, ok := pageNumberOf(c); ok && isActive(c) {
			return n, true
		}
	}
	marked, err := region.Elements(activeSelector)
	if err != nil {
		return 0, false
	}
	for _, m := range marked {
		if n, ok := pageNumberOf(m); ok {
			return n, true
		}
	}
	return 0, false
}

func isActive(el render.Element) bool {
	return strings.Contains(lowerAttr(el, "class"), "active") ||
		lowerAttr(el, "aria-current") == "page"
}

func pageNumberOf(el render.Element) (int, bool) {
	text, err := el.Text()
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func lowerAttr(el render.Element, name string) string {
	v, _, _ := el.Attribute(name)
	return strings.ToLower(strings.TrimSpace(v))
}
