package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"aireporter/internal/httputil"
)

// LocalOnly guards a loopback listener against pages in the user's browser.
// Requests whose Host is not one of hosts are refused, which defeats DNS
// rebinding. Mutating requests from a browser must come from the same origin
// or from one of origins.
func LocalOnly(hosts, origins []string, logger *slog.Logger) func(http.Handler) http.Handler {
	allowedHosts := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		allowedHosts[strings.ToLower(h)] = struct{}{}
	}
	trusted := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		trusted[strings.ToLower(strings.TrimSuffix(o, "/"))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowedHosts[strings.ToLower(r.Host)]; !ok {
				logger.Warn("request refused",
					"request_id", httputil.GetRequestID(r),
					"reason", "host",
					"host", r.Host,
					"path", r.URL.Path,
				)
				httputil.RespondError(w, http.StatusForbidden, "host not allowed")
				return
			}

			if !safeMethod(r.Method) && !sameOrTrustedOrigin(r, trusted) {
				logger.Warn("request refused",
					"request_id", httputil.GetRequestID(r),
					"reason", "origin",
					"origin", r.Header.Get("Origin"),
					"path", r.URL.Path,
				)
				httputil.RespondError(w, http.StatusForbidden, "cross-origin request refused")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// sameOrTrustedOrigin accepts requests without browser provenance headers,
// such as the CLI or curl.
func sameOrTrustedOrigin(r *http.Request, trusted map[string]struct{}) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		switch r.Header.Get("Sec-Fetch-Site") {
		case "", "same-origin", "none":
			return true
		}
		return false
	}

	if _, ok := trusted[strings.ToLower(origin)]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
