package screens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"firetodo/internal/nav"
	"firetodo/internal/service"
	"firetodo/internal/session"
)

// Image is a picked image ready for upload.
type Image struct {
	Data        []byte
	ContentType string
}

// ImagePicker is the platform gallery.
type ImagePicker interface {
	// RequestPermission asks for gallery access.
	RequestPermission(ctx context.Context) (bool, error)

	// Pick lets the user choose an image. ok is false if the user cancelled.
	Pick(ctx context.Context) (img Image, ok bool, err error)
}

// ProfileState is the load state of the profile screen.
type ProfileState int

const (
	ProfileLoading ProfileState = iota
	ProfileReady
	// ProfileRedirected means no session was present and the app went to login.
	ProfileRedirected
)

func (s ProfileState) String() string {
	switch s {
	case ProfileLoading:
		return "loading"
	case ProfileReady:
		return "ready"
	case ProfileRedirected:
		return "redirected"
	default:
		return "unknown"
	}
}

// ProfileView is what the profile screen renders.
type ProfileView struct {
	State       ProfileState
	Email       string
	DisplayName string
	PictureURL  string // empty means no picture
	Uploading   bool
}

// Profile is the profile screen: display name, picture and logout.
type Profile struct {
	auth     service.Auth
	blobs    service.Blobs
	picker   ImagePicker
	observer *session.Observer
	log      *slog.Logger

	mu   sync.Mutex
	view ProfileView
	uid  string
	gen  uint64
}

// NewProfile creates an unmounted profile screen.
func NewProfile(auth service.Auth, blobs service.Blobs, picker ImagePicker, observer *session.Observer, logger *slog.Logger) *Profile {
	return &Profile{
		auth:     auth,
		blobs:    blobs,
		picker:   picker,
		observer: observer,
		log:      orDiscard(logger),
	}
}

// Mount loads the profile. Without a session it returns the login screen.
// A missing picture is a valid empty state. Any other lookup error still
// leaves the screen ready without a picture and is returned for display.
func (p *Profile) Mount(ctx context.Context) (nav.Screen, error) {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.view = ProfileView{State: ProfileLoading}
	p.uid = ""
	p.mu.Unlock()

	if err := p.observer.WaitReady(ctx); err != nil {
		return nav.ScreenProfile, err
	}
	user, ok := p.observer.User()
	if !ok {
		p.mu.Lock()
		if gen == p.gen {
			p.view.State = ProfileRedirected
		}
		p.mu.Unlock()
		return nav.ScreenLogin, nil
	}

	pictureURL, err := p.blobs.RetrievalURL(ctx, service.ProfilePicturePath(user.ID))
	if errors.Is(err, service.ErrNotFound) {
		pictureURL, err = "", nil
	}
	if err != nil {
		p.log.Warn("profile picture lookup failed", slog.Any("error", err))
		pictureURL = ""
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return nav.ScreenProfile, nil
	}
	p.uid = user.ID
	p.view = ProfileView{
		State:       ProfileReady,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PictureURL:  pictureURL,
	}
	if err != nil {
		return nav.ScreenProfile, fmt.Errorf("load profile picture: %w", err)
	}
	return nav.ScreenProfile, nil
}

// Unmount resets the screen. Results of requests still in flight are discarded.
func (p *Profile) Unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.uid = ""
	p.view = ProfileView{State: ProfileLoading}
}

// View returns a copy of the render state.
func (p *Profile) View() ProfileView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// ready returns the mounted user ID and generation.
func (p *Profile) ready() (string, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.view.State != ProfileReady {
		return "", 0, ErrNotMounted
	}
	return p.uid, p.gen, nil
}

// PickAndUpload asks for gallery permission, lets the user pick an image,
// uploads it to the user's picture path and links its URL to the profile.
//
// A failure after the upload leaves the stored picture in place.
func (p *Profile) PickAndUpload(ctx context.Context) error {
	uid, gen, err := p.ready()
	if err != nil {
		return err
	}

	granted, err := p.picker.RequestPermission(ctx)
	if err != nil {
		return err
	}
	if !granted {
		return ErrPermissionDenied
	}

	img, ok, err := p.picker.Pick(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	p.setUploading(gen, true)
	defer p.setUploading(gen, false)

	path := service.ProfilePicturePath(uid)
	if err := p.blobs.Upload(ctx, path, img.Data, img.ContentType); err != nil {
		return fmt.Errorf("upload picture: %w", err)
	}
	pictureURL, err := p.blobs.RetrievalURL(ctx, path)
	if err != nil {
		return fmt.Errorf("resolve picture url: %w", err)
	}
	if _, err := p.auth.UpdateProfile(ctx, service.ProfilePatch{PhotoURL: &pictureURL}); err != nil {
		return fmt.Errorf("link picture to profile: %w", err)
	}

	p.mu.Lock()
	if gen == p.gen {
		p.view.PictureURL = pictureURL
	}
	p.mu.Unlock()
	return nil
}

func (p *Profile) setUploading(gen uint64, uploading bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen == p.gen {
		p.view.Uploading = uploading
	}
}

// UpdateDisplayName sets the profile's display name.
func (p *Profile) UpdateDisplayName(ctx context.Context, name string) error {
	if blank(name) {
		return invalid("Username cannot be empty!")
	}
	_, gen, err := p.ready()
	if err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	if _, err := p.auth.UpdateProfile(ctx, service.ProfilePatch{DisplayName: &name}); err != nil {
		return err
	}

	p.mu.Lock()
	if gen == p.gen {
		p.view.DisplayName = name
	}
	p.mu.Unlock()
	return nil
}

// Logout signs out. On success the app navigates to the login screen.
func (p *Profile) Logout(ctx context.Context) (nav.Screen, error) {
	if err := p.auth.SignOut(ctx); err != nil {
		p.log.Warn("logout failed", slog.Any("error", err))
		return nav.ScreenProfile, err
	}
	return nav.ScreenLogin, nil
}
