package firebase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"

	"firetodo/internal/service"
)

// Auth implements service.Auth against the Identity Toolkit REST API.
// It also serves as the oauth2.TokenSource for the data services: the
// bearer token is the signed-in user's ID token.
type Auth struct {
	svc      *identitytoolkit.Service
	apiKey   string
	tokenURL string
	// refreshCtx carries the base HTTP client for token refreshes.
	refreshCtx context.Context
	log        *slog.Logger

	mu     sync.Mutex
	user   *service.User
	tokens oauth2.TokenSource

	listenerMu sync.Mutex
	listeners  map[int]func(*service.User)
	nextID     int
}

func newAuth(ctx context.Context, svc *identitytoolkit.Service, base *http.Client, apiKey, tokenURL string, logger *slog.Logger) *Auth {
	return &Auth{
		svc:        svc,
		apiKey:     apiKey,
		tokenURL:   tokenURL,
		refreshCtx: context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, base),
		log:        logger,
		listeners:  make(map[int]func(*service.User)),
	}
}

func (a *Auth) key() googleapi.CallOption {
	return googleapi.QueryParameter("key", a.apiKey)
}

// CreateAccount registers an email/password account and signs it in.
func (a *Auth) CreateAccount(ctx context.Context, email, password string) (service.User, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	resp, err := a.svc.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do(a.key())
	if err != nil {
		return service.User{}, wrapError(err)
	}

	user := service.User{
		ID:          resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
	}
	if user.Email == "" {
		user.Email = email
	}
	a.start(user, resp.IdToken, resp.RefreshToken, resp.ExpiresIn)
	a.log.Debug("account created", "uid", user.ID)
	return user, nil
}

// SignIn verifies email and password and starts a session.
func (a *Auth) SignIn(ctx context.Context, email, password string) (service.User, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	resp, err := a.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do(a.key())
	if err != nil {
		return service.User{}, wrapError(err)
	}

	user := service.User{
		ID:          resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		PhotoURL:    resp.PhotoUrl,
	}
	a.start(user, resp.IdToken, resp.RefreshToken, resp.ExpiresIn)
	a.log.Debug("signed in", "uid", user.ID)
	return user, nil
}

// SignOut drops the local session. ID tokens are not revocable from the
// client, so no request is made.
func (a *Auth) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	had := a.user != nil
	a.user = nil
	a.tokens = nil
	a.mu.Unlock()

	if had {
		a.log.Debug("signed out")
		a.notify()
	}
	return nil
}

// CurrentUser returns the signed-in user.
func (a *Auth) CurrentUser() (service.User, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return service.User{}, false
	}
	return *a.user, true
}

// OnSessionChange registers fn and immediately reports the current state.
func (a *Auth) OnSessionChange(fn func(*service.User)) func() {
	a.listenerMu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	fn(a.snapshot())
	a.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.listenerMu.Lock()
			delete(a.listeners, id)
			a.listenerMu.Unlock()
		})
	}
}

// UpdateProfile patches display name and photo URL of the signed-in user.
// An empty string clears the attribute.
func (a *Auth) UpdateProfile(ctx context.Context, patch service.ProfilePatch) (service.User, error) {
	tok, err := a.Token()
	if err != nil {
		return service.User{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	req := &identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{
		IdToken:           tok.AccessToken,
		ReturnSecureToken: true,
	}
	if patch.DisplayName != nil {
		if *patch.DisplayName == "" {
			req.DeleteAttribute = append(req.DeleteAttribute, "DISPLAY_NAME")
		} else {
			req.DisplayName = *patch.DisplayName
		}
	}
	if patch.PhotoURL != nil {
		if *patch.PhotoURL == "" {
			req.DeleteAttribute = append(req.DeleteAttribute, "PHOTO_URL")
		} else {
			req.PhotoUrl = *patch.PhotoURL
		}
	}

	resp, err := a.svc.Relyingparty.SetAccountInfo(req).Context(ctx).Do(a.key())
	if err != nil {
		return service.User{}, wrapError(err)
	}

	a.mu.Lock()
	if a.user == nil {
		a.mu.Unlock()
		return service.User{}, service.ErrNotSignedIn
	}
	if patch.DisplayName != nil {
		a.user.DisplayName = resp.DisplayName
	}
	if patch.PhotoURL != nil {
		a.user.PhotoURL = resp.PhotoUrl
	}
	user := *a.user
	if resp.IdToken != "" {
		a.tokens = a.tokenSource(resp.IdToken, resp.RefreshToken, resp.ExpiresIn)
	}
	a.mu.Unlock()

	a.notify()
	return user, nil
}

// Token returns the current ID token, refreshing it when it has expired.
// A rejected refresh ends the session.
func (a *Auth) Token() (*oauth2.Token, error) {
	a.mu.Lock()
	src := a.tokens
	a.mu.Unlock()
	if src == nil {
		return nil, service.ErrNotSignedIn
	}

	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode < 500 {
			a.invalidate(src)
		}
		return nil, wrapError(err)
	}
	return tok, nil
}

// invalidate signs out if src still backs the current session.
func (a *Auth) invalidate(src oauth2.TokenSource) {
	a.mu.Lock()
	if a.tokens != src {
		a.mu.Unlock()
		return
	}
	a.user = nil
	a.tokens = nil
	a.mu.Unlock()

	a.log.Warn("session expired, signed out")
	a.notify()
}

func (a *Auth) start(user service.User, idToken, refreshToken string, expiresIn int64) {
	a.mu.Lock()
	a.user = &user
	a.tokens = a.tokenSource(idToken, refreshToken, expiresIn)
	a.mu.Unlock()
	a.notify()
}

func (a *Auth) tokenSource(idToken, refreshToken string, expiresIn int64) oauth2.TokenSource {
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  a.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if expiresIn <= 0 {
		expiresIn = defaultTokenLifetime
	}
	return conf.TokenSource(a.refreshCtx, &oauth2.Token{
		AccessToken:  idToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Duration(expiresIn) * time.Second),
	})
}

func (a *Auth) snapshot() *service.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// notify reports the current state to every listener. Listeners run with
// listenerMu held so they observe changes in order.
func (a *Auth) notify() {
	a.listenerMu.Lock()
	defer a.listenerMu.Unlock()
	user := a.snapshot()
	for _, fn := range a.listeners {
		if user == nil {
			fn(nil)
			continue
		}
		u := *user
		fn(&u)
	}
}
