package extract

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/profilescout/models"
	"github.com/use-agent/profilescout/render"
	"github.com/use-agent/profilescout/tree"
)

type stage struct {
	name string
	fn   func(p *page) error
}

// defaultStages is the fixed precedence order. Every stage writes through
// SetIfUnset except full-text, so earlier stages win conflicts.
func defaultStages() []stage {
	return []stage{
		{name: "client-state", fn: clientStateStage},
		{name: "name", fn: nameStage},
		{name: "labels", fn: labelStage},
		{name: "description", fn: descriptionStage},
		{name: "links", fn: linksStage},
		{name: "json-scripts", fn: jsonScriptsStage},
		{name: "full-text", fn: fullTextStage},
	}
}

// clientStateStage walks the embedded application state and copies every
// value whose key is in the state dictionary.
func clientStateStage(p *page) error {
	state, err := p.r.Run(p.ctx, render.ScriptClientState)
	if err != nil || state == nil {
		return err
	}
	state.Walk(func(key string, v *tree.Node) {
		field, ok := stateFields[strings.ToLower(key)]
		if !ok || v == nil {
			return
		}
		switch {
		case v.IsScalar():
			p.rec.SetIfUnset(field, v.Value)
		case v.Kind == tree.Sequence && len(v.Items) > 0:
			p.rec.SetIfUnset(field, v.Join(", "))
		}
	})
	return nil
}

// nameStage tries the name selectors in order and keeps the first short,
// non-empty element text.
func nameStage(p *page) error {
	if p.rec.Has("name") {
		return nil
	}
	for _, sel := range nameSelectors {
		els, err := p.r.Elements(p.ctx, sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			text, err := el.Text()
			if err != nil {
				continue
			}
			text = strings.TrimSpace(text)
			if text != "" && utf8.RuneCountInString(text) < maxNameLength {
				p.rec.SetIfUnset("name", text)
				return nil
			}
		}
	}
	return nil
}

// labelStage scans "Label: value" lines of the visible text.
func labelStage(p *page) error {
	text, err := p.bodyText()
	if err != nil {
		return err
	}
	for _, line := range strings.Split(text, "\n") {
		label, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		label = strings.ToLower(strings.TrimSpace(label))
		value = strings.TrimSpace(value)
		for _, l := range labelFields {
			if strings.Contains(label, l.keyword) {
				p.rec.SetIfUnset(l.field, value)
				break
			}
		}
	}
	return nil
}

// descriptionStage falls back to the first long paragraphs.
func descriptionStage(p *page) error {
	if p.rec.Has("description") {
		return nil
	}
	paragraphs, err := p.r.Elements(p.ctx, "p")
	if err != nil {
		return err
	}
	var parts []string
	for _, el := range paragraphs {
		text, err := el.Text()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if utf8.RuneCountInString(text) > minDescriptionLength {
			parts = append(parts, text)
			if len(parts) == maxDescriptionParagraphs {
				break
			}
		}
	}
	p.rec.SetIfUnset("description", strings.Join(parts, " "))
	return nil
}

// linksStage takes the first off-site http link as the website and the
// first mailto address as the email.
func linksStage(p *page) error {
	anchors, err := p.r.Elements(p.ctx, "a[href]")
	if err != nil {
		return err
	}
	var website, email string
	for _, a := range anchors {
		href, ok, err := a.Attribute("href")
		if err != nil || !ok {
			continue
		}
		href = strings.TrimSpace(href)
		lower := strings.ToLower(href)
		switch {
		case website == "" && strings.HasPrefix(lower, "http"):
			if d := registrableDomain(href); d != "" && d != p.siteDomain {
				website = href
			}
		case email == "" && strings.HasPrefix(lower, "mailto:"):
			email = mailtoAddress(href)
		}
		if website != "" && email != "" {
			break
		}
	}
	p.rec.SetIfUnset("website", website)
	p.rec.SetIfUnset("email", email)
	return nil
}

func mailtoAddress(href string) string {
	addr := href[len("mailto:"):]
	if i := strings.IndexByte(addr, '?'); i >= 0 {
		addr = addr[:i]
	}
	if unescaped, err := url.PathUnescape(addr); err == nil {
		addr = unescaped
	}
	return strings.TrimSpace(addr)
}

// jsonScriptsStage flattens every application/json script block whose root
// is an object.
func jsonScriptsStage(p *page) error {
	src, err := p.r.Source(p.ctx)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return err
	}
	doc.Find(`script[type="application/json"]`).Each(func(_ int, s *goquery.Selection) {
		body := strings.TrimSpace(s.Text())
		if body == "" {
			return
		}
		n, err := tree.Parse([]byte(body))
		if err != nil || n.Kind != tree.Mapping {
			return
		}
		for _, f := range n.Flatten("_") {
			p.rec.SetIfUnset(f.Key, f.Value)
		}
	})
	return nil
}

// fullTextStage always stores the head of the visible text, even when it
// could not be read.
func fullTextStage(p *page) error {
	text, err := p.bodyText()
	p.rec.Set(models.FieldFullText, truncateRunes(text, p.opts.FullTextLimit))
	return err
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
