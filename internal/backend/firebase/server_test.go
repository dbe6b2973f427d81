package firebase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	firestore "google.golang.org/api/firestore/v1"
)

const (
	testKey     = "test-key"
	testProject = "demo"
	testBucket  = "bkt"
	docsPrefix  = "/firestore/v1/projects/demo/databases/(default)/documents"
)

type fakeAccount struct {
	uid, email, password, displayName, photoURL string
}

// fakeServer emulates the slices of Identity Toolkit, Secure Token,
// Firestore and Firebase Storage the client talks to. Like production, the
// Cloud Storage JSON API refuses Firebase ID tokens.
type fakeServer struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	accounts  map[string]*fakeAccount // by email
	idTokens  map[string]string       // token -> uid
	refreshes map[string]string       // refresh token -> uid
	issued    int

	expiresIn    string
	refreshFails bool
	refreshCalls int

	docs        map[string]*firestore.Document
	order       []string
	queryStatus int
	queries     int
	bearers     []string

	objects  map[string]*objectMetadata
	data     map[string][]byte
	jsonAPIs int
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{
		t:         t,
		accounts:  make(map[string]*fakeAccount),
		idTokens:  make(map[string]string),
		refreshes: make(map[string]string),
		expiresIn: "3600",
		docs:      make(map[string]*firestore.Document),
		objects:   make(map[string]*objectMetadata),
		data:      make(map[string][]byte),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) options() Options {
	return Options{
		APIKey:            testKey,
		ProjectID:         testProject,
		Bucket:            testBucket,
		AuthEndpoint:      f.srv.URL + "/identitytoolkit/v3/relyingparty/",
		TokenURL:          f.srv.URL + "/token",
		FirestoreEndpoint: f.srv.URL + "/firestore/",
		StorageEndpoint:   f.srv.URL + "/v0/",
		PollInterval:      20 * time.Millisecond,
		HTTPClient:        f.srv.Client(),
	}
}

func newTestClient(t *testing.T) (*Client, *fakeServer) {
	t.Helper()
	f := newFakeServer(t)
	c, err := NewWithOptions(context.Background(), f.options())
	require.NoError(t, err)
	return c, f
}

func (f *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	switch p := r.URL.Path; {
	case strings.HasPrefix(p, "/identitytoolkit/"):
		f.handleAuth(w, r)
	case p == "/token":
		f.handleToken(w, r)
	case strings.HasPrefix(p, "/firestore/"):
		if !f.authorized(w, r) {
			return
		}
		f.handleFirestore(w, r, strings.TrimPrefix(p, docsPrefix))
	case strings.HasPrefix(p, "/storage/"):
		f.mu.Lock()
		f.jsonAPIs++
		f.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid Credentials")
	case strings.HasPrefix(p, "/v0/b/"+testBucket+"/o"):
		if !f.authorized(w, r) {
			return
		}
		f.handleStorage(w, r)
	default:
		writeError(w, http.StatusNotFound, "unknown path "+p)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":%q}}`, code, msg)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeServer) authorized(w http.ResponseWriter, r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bearers = append(f.bearers, token)
	if _, ok := f.idTokens[token]; !ok {
		writeError(w, http.StatusUnauthorized, "Missing or invalid authentication.")
		return false
	}
	return true
}

// issueLocked mints a token pair for uid.
func (f *fakeServer) issueLocked(uid string) (idToken, refreshToken string) {
	f.issued++
	idToken = fmt.Sprintf("id-%s-%d", uid, f.issued)
	refreshToken = fmt.Sprintf("rt-%s-%d", uid, f.issued)
	f.idTokens[idToken] = uid
	f.refreshes[refreshToken] = uid
	return idToken, refreshToken
}

func (f *fakeServer) session(a *fakeAccount) map[string]any {
	idToken, refreshToken := f.issueLocked(a.uid)
	return map[string]any{
		"localId":      a.uid,
		"email":        a.email,
		"displayName":  a.displayName,
		"photoUrl":     a.photoURL,
		"idToken":      idToken,
		"refreshToken": refreshToken,
		"expiresIn":    f.expiresIn,
	}
}

func (f *fakeServer) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("key") != testKey {
		writeError(w, http.StatusBadRequest, "API key not valid. Please pass a valid API key.")
		return
	}
	var req struct {
		Email           string   `json:"email"`
		Password        string   `json:"password"`
		IDToken         string   `json:"idToken"`
		DisplayName     string   `json:"displayName"`
		PhotoURL        string   `json:"photoUrl"`
		DeleteAttribute []string `json:"deleteAttribute"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:] {
	case "signupNewUser":
		if _, ok := f.accounts[req.Email]; ok {
			writeError(w, http.StatusBadRequest, "EMAIL_EXISTS")
			return
		}
		if len(req.Password) < 6 {
			writeError(w, http.StatusBadRequest, "WEAK_PASSWORD : Password should be at least 6 characters")
			return
		}
		a := &fakeAccount{uid: fmt.Sprintf("uid-%d", len(f.accounts)+1), email: req.Email, password: req.Password}
		f.accounts[req.Email] = a
		writeJSON(w, f.session(a))
	case "verifyPassword":
		a, ok := f.accounts[req.Email]
		if !ok || a.password != req.Password {
			writeError(w, http.StatusBadRequest, "INVALID_LOGIN_CREDENTIALS")
			return
		}
		writeJSON(w, f.session(a))
	case "setAccountInfo":
		uid, ok := f.idTokens[req.IDToken]
		if !ok {
			writeError(w, http.StatusBadRequest, "INVALID_ID_TOKEN")
			return
		}
		var a *fakeAccount
		for _, acct := range f.accounts {
			if acct.uid == uid {
				a = acct
			}
		}
		if req.DisplayName != "" {
			a.displayName = req.DisplayName
		}
		if req.PhotoURL != "" {
			a.photoURL = req.PhotoURL
		}
		for _, attr := range req.DeleteAttribute {
			switch attr {
			case "DISPLAY_NAME":
				a.displayName = ""
			case "PHOTO_URL":
				a.photoURL = ""
			}
		}
		writeJSON(w, f.session(a))
	default:
		writeError(w, http.StatusNotFound, "unknown method")
	}
}

func (f *fakeServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++

	uid, ok := f.refreshes[r.PostForm.Get("refresh_token")]
	if f.refreshFails || !ok || r.PostForm.Get("grant_type") != "refresh_token" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"TOKEN_EXPIRED"}`)
		return
	}
	idToken, refreshToken := f.issueLocked(uid)
	writeJSON(w, map[string]any{
		"access_token":  idToken,
		"id_token":      idToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    3600,
		"user_id":       uid,
	})
}

func (f *fakeServer) handleFirestore(w http.ResponseWriter, r *http.Request, rest string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && rest == ":commit":
		var req firestore.CommitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		for _, wr := range req.Writes {
			name := strings.TrimPrefix(wr.Update.Name, "projects/demo/databases/(default)/documents")
			if _, exists := f.docs[name]; exists && wr.CurrentDocument != nil && !wr.CurrentDocument.Exists {
				writeError(w, http.StatusConflict, "Document already exists")
				return
			}
			doc := &firestore.Document{Name: wr.Update.Name, Fields: wr.Update.Fields}
			for _, tr := range wr.UpdateTransforms {
				if tr.SetToServerValue == "REQUEST_TIME" {
					doc.Fields[tr.FieldPath] = firestore.Value{TimestampValue: now}
				}
			}
			f.docs[name] = doc
			f.order = append(f.order, name)
		}
		writeJSON(w, map[string]any{"writeResults": []any{map[string]any{}}, "commitTime": now})

	case r.Method == http.MethodPost && rest == ":runQuery":
		f.queries++
		if f.queryStatus != 0 {
			writeError(w, f.queryStatus, "query failed")
			return
		}
		var req firestore.RunQueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter := req.StructuredQuery.Where.FieldFilter
		owner := *filter.Value.StringValue
		readTime := time.Now().UTC().Format(time.RFC3339Nano)
		results := []*firestore.RunQueryResponse{}
		for _, name := range f.order {
			doc, ok := f.docs[name]
			if !ok {
				continue
			}
			if v := doc.Fields[filter.Field.FieldPath]; v.StringValue == nil || *v.StringValue != owner {
				continue
			}
			results = append(results, &firestore.RunQueryResponse{Document: doc, ReadTime: readTime})
		}
		if len(results) == 0 {
			results = append(results, &firestore.RunQueryResponse{ReadTime: readTime})
		}
		writeJSON(w, results)

	case r.Method == http.MethodPatch:
		doc, ok := f.docs[rest]
		if !ok {
			writeError(w, http.StatusNotFound, "No document to update: "+rest)
			return
		}
		if r.URL.Query().Get("updateMask.fieldPaths") != fieldCompleted {
			writeError(w, http.StatusBadRequest, "unexpected update mask")
			return
		}
		var patch firestore.Document
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		doc.Fields[fieldCompleted] = patch.Fields[fieldCompleted]
		writeJSON(w, doc)

	case r.Method == http.MethodDelete:
		delete(f.docs, rest)
		writeJSON(w, map[string]any{})

	default:
		writeError(w, http.StatusNotFound, "unsupported firestore call")
	}
}

func (f *fakeServer) handleStorage(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		if r.Header.Get("X-Goog-Upload-Protocol") != "multipart" {
			writeError(w, http.StatusBadRequest, "unsupported upload protocol")
			return
		}
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		meta, err := mr.NextPart()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var obj objectMetadata
		if err := json.NewDecoder(meta).Decode(&obj); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		media, err := mr.NextPart()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		data, err := io.ReadAll(media)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if name := r.URL.Query().Get("name"); name != obj.Name {
			writeError(w, http.StatusBadRequest, "name mismatch: "+name)
			return
		}
		obj.Bucket = testBucket
		obj.DownloadTokens = obj.Metadata[downloadTokensKey]
		f.objects[obj.Name] = &obj
		f.data[obj.Name] = data
		writeJSON(w, &obj)

	case http.MethodGet:
		_, name, _ := strings.Cut(r.URL.Path, "/b/"+testBucket+"/o/")
		obj, ok := f.objects[name]
		if !ok {
			writeError(w, http.StatusNotFound, "Not Found.")
			return
		}
		writeJSON(w, obj)

	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported storage call")
	}
}

// lastBearer returns the most recent Authorization token seen on a data call.
func (f *fakeServer) lastBearer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bearers) == 0 {
		return ""
	}
	return f.bearers[len(f.bearers)-1]
}

func (f *fakeServer) bearerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bearers)
}

func (f *fakeServer) setQueryStatus(code int) {
	f.mu.Lock()
	f.queryStatus = code
	f.mu.Unlock()
}

func (f *fakeServer) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

func (f *fakeServer) configure(fn func(f *fakeServer)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeServer) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *fakeServer) account(email string) fakeAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.accounts[email]
}

func (f *fakeServer) jsonAPICalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jsonAPIs
}

func (f *fakeServer) object(name string) (*objectMetadata, []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[name], f.data[name]
}
