// Package service defines the backend-agnostic contracts for auth, tasks and blobs.
package service

import "time"

const (
	// TasksCollection is the document collection holding every user's tasks.
	TasksCollection = "todos"

	// profilePicturePrefix is the blob path prefix for profile pictures.
	profilePicturePrefix = "profilePictures/"
)

// User is the read-only projection of the signed-in session.
type User struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
}

// Task represents a single to-do record.
type Task struct {
	ID        string
	OwnerID   string // session ID of the creator
	Text      string
	Completed bool
	CreatedAt time.Time
}

// NewTask is a create request. The backend assigns ID and CreatedAt.
type NewTask struct {
	OwnerID string
	Text    string
}

// ProfilePatch updates the session user's profile record.
// Nil fields are left unchanged.
type ProfilePatch struct {
	DisplayName *string
	PhotoURL    *string
}

// ProfilePicturePath returns the deterministic blob path of a user's picture.
// Re-uploading to the same path overwrites the previous picture.
func ProfilePicturePath(uid string) string {
	return profilePicturePrefix + uid + ".jpg"
}

// CloneTasks returns a copy of tasks that shares no backing array.
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}
