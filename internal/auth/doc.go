// Package auth implements account signup, login and logout, and guards
// members-only routes.
//
// Sessions are server-side. The browser holds only an opaque session
// identifier in a signed, HttpOnly cookie; every protected request resolves
// that identifier against the session store:
//
//	svc := auth.NewService(users, sessionStore, auth.NewBcryptHasher(cfg.BcryptCost))
//	guard := auth.NewGuard(svc, cookies, logger)
//	router.GET("/members", guard.RequireSession(), membersHandler)
//
// Handlers read the authenticated user with CurrentUser.
package auth
