// Package nav selects the reachable screen set from the session state.
package nav

import "firetodo/internal/session"

// Route is the top-level flow.
type Route int

const (
	// RouteLoading renders nothing until the session is known.
	RouteLoading Route = iota
	// RouteUnauthenticated offers the signup and login screens.
	RouteUnauthenticated
	// RouteAuthenticated offers the tab set.
	RouteAuthenticated
)

func (r Route) String() string {
	switch r {
	case RouteLoading:
		return "loading"
	case RouteUnauthenticated:
		return "unauthenticated"
	case RouteAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Screen identifies a screen within a route.
type Screen int

const (
	// ScreenNone marks route-independent actions such as help.
	ScreenNone Screen = iota
	ScreenSignup
	ScreenLogin
	ScreenTasks
	ScreenProfile
)

// Title returns the screen's display name.
func (s Screen) Title() string {
	switch s {
	case ScreenSignup:
		return "Sign Up"
	case ScreenLogin:
		return "Login"
	case ScreenTasks:
		return "To-Do"
	case ScreenProfile:
		return "Profile"
	default:
		return ""
	}
}

// Resolve maps the session state to a route.
func Resolve(state session.State) Route {
	switch state {
	case session.StateSignedIn:
		return RouteAuthenticated
	case session.StateSignedOut:
		return RouteUnauthenticated
	default:
		return RouteLoading
	}
}

// Screens returns the screen set of a route, first screen first.
func Screens(r Route) []Screen {
	switch r {
	case RouteUnauthenticated:
		return []Screen{ScreenSignup, ScreenLogin}
	case RouteAuthenticated:
		return []Screen{ScreenTasks, ScreenProfile}
	default:
		return nil
	}
}

// Allows reports whether screen is reachable in route.
func Allows(r Route, screen Screen) bool {
	if screen == ScreenNone {
		return true
	}
	for _, s := range Screens(r) {
		if s == screen {
			return true
		}
	}
	return false
}
