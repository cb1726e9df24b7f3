package scraper

import "github.com/use-agent/profilescout/render"

// scripts hold the page-side implementation of each named script. Every
// function returns a JSON string so key order survives the CDP round trip.
var scripts = map[render.Script]string{
	render.ScriptClientState: `() => {
		const pick = () => {
			try {
				if (window.__NUXT__) {
					return window.__NUXT__.data !== undefined ? window.__NUXT__.data : window.__NUXT__;
				}
				if (window.$nuxt && window.$nuxt.$store) return window.$nuxt.$store.state;
				if (window.__NEXT_DATA__) {
					return window.__NEXT_DATA__.props !== undefined ? window.__NEXT_DATA__.props : window.__NEXT_DATA__;
				}
				return window.__INITIAL_STATE__ || window.__PRELOADED_STATE__ || window.__APOLLO_STATE__ || null;
			} catch (e) {
				return null;
			}
		};
		try {
			return JSON.stringify(pick() ?? null);
		} catch (e) {
			return "null";
		}
	}`,

	render.ScriptDocumentHeight: `() => JSON.stringify(Math.max(
		document.body ? document.body.scrollHeight : 0,
		document.documentElement ? document.documentElement.scrollHeight : 0
	))`,

	render.ScriptScrollToBottom: `() => {
		window.scrollTo(0, Math.max(document.body.scrollHeight, document.documentElement.scrollHeight));
		return "null";
	}`,
}

const bodyTextJS = `() => document.body ? document.body.innerText : ""`

const currentURLJS = `() => window.location.href`
