package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	firestore "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"

	"firetodo/internal/service"
)

// Task document fields.
const (
	fieldOwner     = "uid"
	fieldText      = "text"
	fieldCompleted = "completed"
	fieldCreatedAt = "createdAt"
)

// Store implements service.Tasks on the Firestore REST API.
type Store struct {
	docs     *firestore.ProjectsDatabasesDocumentsService
	http     *http.Client
	basePath string
	database string
	parent   string
	interval time.Duration
	log      *slog.Logger

	mu sync.Mutex
	// written is closed and replaced after every successful write so that
	// pollers refresh without waiting for the next tick.
	written chan struct{}
}

func newStore(svc *firestore.Service, httpClient *http.Client, projectID string, interval time.Duration, logger *slog.Logger) *Store {
	database := fmt.Sprintf("projects/%s/databases/(default)", projectID)
	return &Store{
		docs:     svc.Projects.Databases.Documents,
		http:     httpClient,
		basePath: svc.BasePath,
		database: database,
		parent:   database + "/documents",
		interval: interval,
		log:      logger,
		written:  make(chan struct{}),
	}
}

func (s *Store) docName(id string) string {
	return s.parent + "/" + service.TasksCollection + "/" + id
}

// Create adds a task document with a server-assigned creation time.
func (s *Store) Create(ctx context.Context, task service.NewTask) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	id := uuid.NewString()
	owner, text, completed := task.OwnerID, task.Text, false
	write := &firestore.Write{
		Update: &firestore.Document{
			Name: s.docName(id),
			Fields: map[string]firestore.Value{
				fieldOwner:     {StringValue: &owner},
				fieldText:      {StringValue: &text},
				fieldCompleted: {BooleanValue: &completed},
			},
		},
		UpdateTransforms: []*firestore.FieldTransform{
			{FieldPath: fieldCreatedAt, SetToServerValue: "REQUEST_TIME"},
		},
		CurrentDocument: &firestore.Precondition{Exists: false, ForceSendFields: []string{"Exists"}},
	}

	_, err := s.docs.Commit(s.database, &firestore.CommitRequest{
		Writes: []*firestore.Write{write},
	}).Context(ctx).Do()
	if err != nil {
		return "", wrapError(err)
	}
	s.log.Debug("task created", "id", id)
	s.signalWrite()
	return id, nil
}

// SetCompleted overwrites the completed field of an existing task.
func (s *Store) SetCompleted(ctx context.Context, id string, completed bool) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	doc := &firestore.Document{
		Fields: map[string]firestore.Value{
			fieldCompleted: {BooleanValue: &completed},
		},
	}
	_, err := s.docs.Patch(s.docName(id), doc).
		UpdateMaskFieldPaths(fieldCompleted).
		CurrentDocumentExists(true).
		Context(ctx).Do()
	if err != nil {
		return wrapError(err)
	}
	s.signalWrite()
	return nil
}

// Delete removes a task document. Deleting a missing document succeeds.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if _, err := s.docs.Delete(s.docName(id)).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	s.signalWrite()
	return nil
}

func (s *Store) signalWrite() {
	s.mu.Lock()
	close(s.written)
	s.written = make(chan struct{})
	s.mu.Unlock()
}

func (s *Store) writes() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// query runs the owner filter. runQuery streams a JSON array of results,
// which is decoded here directly into the generated response type.
func (s *Store) query(ctx context.Context, ownerID string) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	req := &firestore.RunQueryRequest{
		StructuredQuery: &firestore.StructuredQuery{
			From: []*firestore.CollectionSelector{{CollectionId: service.TasksCollection}},
			Where: &firestore.Filter{
				FieldFilter: &firestore.FieldFilter{
					Field: &firestore.FieldReference{FieldPath: fieldOwner},
					Op:    "EQUAL",
					Value: &firestore.Value{StringValue: &ownerID},
				},
			},
		},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.basePath+"v1/"+s.parent+":runQuery", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return nil, wrapError(err)
	}
	defer googleapi.CloseBody(resp)
	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, wrapError(err)
	}

	var results []firestore.RunQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode query results: %w", err)
	}

	tasks := make([]service.Task, 0, len(results))
	for _, r := range results {
		if r.Document == nil {
			continue
		}
		tasks = append(tasks, taskFromDocument(r.Document))
	}
	return tasks, nil
}

func taskFromDocument(doc *firestore.Document) service.Task {
	t := service.Task{ID: path.Base(doc.Name)}
	if v, ok := doc.Fields[fieldOwner]; ok && v.StringValue != nil {
		t.OwnerID = *v.StringValue
	}
	if v, ok := doc.Fields[fieldText]; ok && v.StringValue != nil {
		t.Text = *v.StringValue
	}
	if v, ok := doc.Fields[fieldCompleted]; ok && v.BooleanValue != nil {
		t.Completed = *v.BooleanValue
	}
	if v, ok := doc.Fields[fieldCreatedAt]; ok && v.TimestampValue != "" {
		if ts, err := time.Parse(time.RFC3339Nano, v.TimestampValue); err == nil {
			t.CreatedAt = ts
		}
	}
	return t
}
