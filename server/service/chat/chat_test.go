package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/confidant/server/ai"
	"github.com/hrygo/confidant/store"
	teststore "github.com/hrygo/confidant/store/test"
)

type fakeCompleter struct {
	mu       sync.Mutex
	requests []ai.CompletionRequest
	reply    string
	err      error
	onCall   func(ctx context.Context)
}

func (f *fakeCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	reply, err, onCall := f.reply, f.err, f.onCall
	f.mu.Unlock()

	if onCall != nil {
		onCall(ctx)
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (f *fakeCompleter) calls() []ai.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ai.CompletionRequest(nil), f.requests...)
}

type recordingScheduler struct {
	mu   sync.Mutex
	jobs []SummaryJob
}

func (r *recordingScheduler) Schedule(job SummaryJob) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return true
}

func (r *recordingScheduler) scheduled() []SummaryJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SummaryJob(nil), r.jobs...)
}

func testPersona(t *testing.T) Persona {
	t.Helper()
	persona, err := NewPersona("You are a test companion.")
	require.NoError(t, err)
	return persona
}

func newTestStore(t *testing.T) *store.Store {
	return teststore.NewTestingStore(context.Background(), t)
}
