// Package sso mounts the VK sign-in surface on a chi router: the login and
// callback routes, the deauthorization page, the admin settings page with its
// JSON twin, the association and strategy APIs, and the client assets that
// replace the login button icon.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/", sso.Router(sso.Deps{
//		Auth:         service,
//		Associations: associations,
//		Settings:     settings,
//		Sessions:     sessions,
//		Translator:   translator,
//		BaseURL:      "https://forum.example.com",
//	}))
package sso
