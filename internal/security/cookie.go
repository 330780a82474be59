package security

import (
	"net/http"
	"time"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	RefreshCookiePath  = "/api/v1/auth"
)

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

type CookieOptions struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func SetTokenCookies(w http.ResponseWriter, access, refresh string, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    access,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(opts.AccessTTL.Seconds()),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    refresh,
		Path:     RefreshCookiePath,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(opts.RefreshTTL.Seconds()),
	})
}

func ClearTokenCookies(w http.ResponseWriter, secure bool) {
	for _, c := range []struct{ name, path string }{
		{AccessTokenCookie, "/"},
		{RefreshTokenCookie, RefreshCookiePath},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    "",
			Path:     c.path,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}
