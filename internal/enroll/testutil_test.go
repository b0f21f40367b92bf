package enroll

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// fakeAPI routes requests to per-test handlers and records every call.
type fakeAPI struct {
	mu      sync.Mutex
	getCall []apiCall
	onGet   func(path string, params url.Values) (interface{}, error)
	onPost  func(path string, body interface{}) (interface{}, error)
}

type apiCall struct {
	Path   string
	Params url.Values
}

func (f *fakeAPI) Get(_ context.Context, path string, params url.Values) (json.RawMessage, error) {
	f.mu.Lock()
	f.getCall = append(f.getCall, apiCall{Path: path, Params: params})
	f.mu.Unlock()
	if f.onGet == nil {
		return nil, fmt.Errorf("unexpected GET %s", path)
	}
	v, err := f.onGet(path, params)
	if err != nil {
		return nil, err
	}
	return mustJSON(v), nil
}

func (f *fakeAPI) Post(_ context.Context, path string, body interface{}) (json.RawMessage, error) {
	if f.onPost == nil {
		return nil, fmt.Errorf("unexpected POST %s", path)
	}
	v, err := f.onPost(path, body)
	if err != nil {
		return nil, err
	}
	return mustJSON(v), nil
}

func (f *fakeAPI) Patch(_ context.Context, path string, body interface{}) (json.RawMessage, error) {
	return f.Post(nil, path, body)
}

func (f *fakeAPI) gets() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]apiCall, len(f.getCall))
	copy(out, f.getCall)
	return out
}

func mustJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func quietLog(t *testing.T) *logrus.Logger {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// rec builds an enrollment listing record in the common tenant shape.
func rec(id, itemID, userID string) map[string]interface{} {
	m := map[string]interface{}{"id": id}
	if itemID != "" {
		m["learningItem"] = "/api/learning_items/" + itemID
	}
	if userID != "" {
		m["user"] = map[string]interface{}{"@id": "/api/users/" + userID}
	}
	return m
}
