package router

import (
	"net/url"
	"strings"
)

// Route describes where an extraction should start for a given URL
type Route struct {
	// Domain is the normalized registrable domain, empty for malformed URLs.
	Domain string

	// RequiresDynamicRendering is true for job boards that build the
	// posting client-side, where static fetches return empty shells.
	RequiresDynamicRendering bool
}

// Router classifies URLs against a configured set of JS-heavy domains
type Router struct {
	jsHeavy []string
}

// New builds a Router from the configured JS-heavy domain list
func New(jsHeavyDomains []string) *Router {
	normalized := make([]string, 0, len(jsHeavyDomains))
	for _, d := range jsHeavyDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			normalized = append(normalized, d)
		}
	}
	return &Router{jsHeavy: normalized}
}

// Classify resolves the routing decision for one URL. Malformed URLs
// classify as static with an empty domain rather than failing; the
// extraction attempt itself will surface the real error.
func (r *Router) Classify(rawURL string) Route {
	host := hostOf(rawURL)
	if host == "" {
		return Route{}
	}

	return Route{
		Domain:                   collapseDomain(host),
		RequiresDynamicRendering: r.isDynamic(host),
	}
}

func (r *Router) isDynamic(host string) bool {
	for _, site := range r.jsHeavy {
		if strings.Contains(host, site) {
			return true
		}
	}
	return false
}

// Domain returns the normalized registrable domain of a URL, or ""
// when the URL cannot be parsed into a host.
func Domain(rawURL string) string {
	return collapseDomain(hostOf(rawURL))
}

// hostOf extracts the lowercased hostname with any www. prefix stripped
func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// collapseDomain reduces a hostname to its last two labels, so
// boards.greenhouse.io and greenhouse.io compare equal downstream.
func collapseDomain(host string) string {
	if host == "" {
		return ""
	}
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}
	return strings.Join(parts[len(parts)-2:], ".")
}
