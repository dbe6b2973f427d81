package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/api/googleapi"

	"firetodo/internal/service"
)

// downloadTokensKey is the custom metadata key Firebase Storage derives
// download tokens from.
const downloadTokensKey = "firebaseStorageDownloadTokens"

// objectMetadata is the Firebase Storage object resource.
type objectMetadata struct {
	Name           string            `json:"name"`
	Bucket         string            `json:"bucket,omitempty"`
	ContentType    string            `json:"contentType,omitempty"`
	DownloadTokens string            `json:"downloadTokens,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Bucket implements service.Blobs on the Firebase Storage REST API, which
// accepts the user's ID token and enforces storage security rules.
type Bucket struct {
	http   *http.Client
	base   string
	bucket string
}

func newBucket(client *http.Client, base, bucket string) *Bucket {
	return &Bucket{http: client, base: base, bucket: bucket}
}

func (b *Bucket) objectsURL() string {
	return b.base + "b/" + url.PathEscape(b.bucket) + "/o"
}

func (b *Bucket) objectURL(path string) string {
	return b.objectsURL() + "/" + url.PathEscape(path)
}

// Upload stores data at path with a fresh download token.
func (b *Bucket) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	meta, err := json.Marshal(&objectMetadata{
		Name:        path,
		ContentType: contentType,
		Metadata:    map[string]string{downloadTokensKey: uuid.NewString()},
	})
	if err != nil {
		return err
	}
	body, boundary, err := multipartBody(meta, data, contentType)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.objectsURL()+"?name="+url.QueryEscape(path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+boundary)
	req.Header.Set("X-Goog-Upload-Protocol", "multipart")

	resp, err := b.http.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer googleapi.CloseBody(resp)
	return wrapError(googleapi.CheckResponse(resp))
}

// multipartBody builds the metadata-then-media body of a multipart upload.
func multipartBody(meta, data []byte, contentType string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=utf-8"}})
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(meta); err != nil {
		return nil, "", err
	}
	part, err = mw.CreatePart(textproto.MIMEHeader{"Content-Type": {contentType}})
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.Boundary(), nil
}

// RetrievalURL returns a tokenized download URL for the object at path.
func (b *Bucket) RetrievalURL(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.objectURL(path), nil)
	if err != nil {
		return "", err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return "", wrapError(err)
	}
	defer googleapi.CloseBody(resp)
	if err := googleapi.CheckResponse(resp); err != nil {
		return "", wrapError(err)
	}

	var obj objectMetadata
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return "", fmt.Errorf("decode object metadata: %w", err)
	}
	token, _, _ := strings.Cut(obj.DownloadTokens, ",")
	if token == "" {
		return "", fmt.Errorf("%w: %s has no download token", service.ErrNotFound, path)
	}
	return b.objectURL(path) + "?alt=media&token=" + url.QueryEscape(token), nil
}
