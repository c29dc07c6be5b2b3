package i18n

import "net/http"

// Middleware attaches a localizer to every request context, preferring
// the Accept-Language header over the configured default.
func Middleware(defaultLang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := r.Header.Get("Accept-Language")
			if lang == "" {
				lang = defaultLang
			}
			next.ServeHTTP(w, r.WithContext(WithLocalizer(r.Context(), lang)))
		})
	}
}
