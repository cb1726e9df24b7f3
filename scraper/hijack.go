package scraper

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to protocol resource types.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// trackerDomains are ad and analytics hosts that never carry profile data.
var trackerDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"googletagservices.com": {},
	"facebook.net":          {},
	"fbcdn.net":             {},
	"adnxs.com":             {},
	"adsrvr.org":            {},
	"amazon-adsystem.com":   {},
	"criteo.com":            {},
	"outbrain.com":          {},
	"taboola.com":           {},
	"scorecardresearch.com": {},
	"hotjar.com":            {},
	"mixpanel.com":          {},
	"segment.io":            {},
	"segment.com":           {},
	"ads-twitter.com":       {},
	"clarity.ms":            {},
	"linkedin.com":          {},
	"licdn.com":             {},
	"chartbeat.com":         {},
	"optimizely.com":        {},
	"demdex.net":            {},
	"consensu.org":          {},
}

// requestFilter decides which browser requests are failed before they leave
// the page.
type requestFilter struct {
	types    map[proto.NetworkResourceType]struct{}
	trackers bool
}

func newRequestFilter(blockedTypes []string, blockTrackers bool) *requestFilter {
	f := &requestFilter{
		types:    make(map[proto.NetworkResourceType]struct{}, len(blockedTypes)),
		trackers: blockTrackers,
	}
	for _, name := range blockedTypes {
		if rt, ok := resourceTypes[name]; ok {
			f.types[rt] = struct{}{}
		}
	}
	return f
}

func (f *requestFilter) empty() bool {
	return len(f.types) == 0 && !f.trackers
}

// blocks reports whether a request of type rt to rawURL should fail.
func (f *requestFilter) blocks(rt proto.NetworkResourceType, rawURL string) bool {
	if _, ok := f.types[rt]; ok {
		return true
	}
	if !f.trackers {
		return false
	}
	u, err := url.Parse(rawURL)
	return err == nil && isTrackerHost(u.Hostname())
}

// install mounts the filter on page and returns the running router, or nil
// when nothing is filtered. The caller stops the router.
func (f *requestFilter) install(page *rod.Page) *rod.HijackRouter {
	if f.empty() {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if f.blocks(h.Request.Type(), h.Request.URL().String()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop.
	go router.Run()
	return router
}

// isTrackerHost matches host or any parent domain against trackerDomains.
func isTrackerHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for host != "" {
		if _, ok := trackerDomains[host]; ok {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			return false
		}
		host = host[i+1:]
	}
	return false
}
