// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

/*
Package session persists the signed session token in a browser cookie.

It is the single owner of the `auth-token` cookie: every flow that issues or
reissues a token goes through [Store.Save] so that a claims change always
OVERWRITES the previous cookie. Merging would let a stale-claim token outlive
a privilege change.

Cookie contract:

  - Name auth-token, path /, SameSite=Strict, max-age 7 days.
  - Secure outside development.
  - HttpOnly for every server-issued flow; the delegated email flow is the
    one exception (see [Store.SaveBrowserReadable]).
*/
package session

import (
	"net/http"

	"github.com/propvault/propvault/internal/platform/constants"
)

// Store writes, reads, and clears the session token cookie.
type Store struct {
	secure bool
}

// NewStore creates a cookie store. Pass secure=true in production so the
// cookie is never sent over plain HTTP.
func NewStore(secure bool) *Store {
	return &Store{secure: secure}
}

// Save overwrites the session cookie with a freshly issued token.
func (store *Store) Save(writer http.ResponseWriter, token string) {
	store.write(writer, token, true)
}

// SaveBrowserReadable overwrites the session cookie WITHOUT HttpOnly.
//
// Only the delegated email/password flow uses this: the web client reads the
// externally issued token out of the cookie directly.
// TODO: switch the email flow to Save once the web client stops reading
// auth-token from document.cookie; every other flow is HttpOnly already.
func (store *Store) SaveBrowserReadable(writer http.ResponseWriter, token string) {
	store.write(writer, token, false)
}

// Load returns the session token from the request cookie, or "" when absent.
func (store *Store) Load(request *http.Request) string {
	cookie, err := request.Cookie(constants.SessionCookieName)
	if err != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}

// Clear expires the session cookie immediately (logout).
func (store *Store) Clear(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     constants.SessionCookiePath,
		MaxAge:   -1,
		Secure:   store.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// write sets the cookie with the standard attributes.
func (store *Store) write(writer http.ResponseWriter, token string, httpOnly bool) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    token,
		Path:     constants.SessionCookiePath,
		MaxAge:   int(constants.SessionTokenTTL.Seconds()),
		Secure:   store.secure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteStrictMode,
	})
}
