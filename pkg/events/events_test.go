package events

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	done     chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	p.mu.Lock()
	p.subjects = append(p.subjects, subject)
	p.mu.Unlock()
	close(p.done)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestPublishAsyncDelivers(t *testing.T) {
	p := &recordingPublisher{done: make(chan struct{})}
	PublishAsync(context.Background(), p, SubjectPropertyCreated, map[string]string{"id": "1"})

	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.subjects) != 1 || p.subjects[0] != SubjectPropertyCreated {
		t.Errorf("subjects = %v", p.subjects)
	}
}

func TestPublishAsyncNilPublisher(t *testing.T) {
	PublishAsync(context.Background(), nil, SubjectImportCompleted, nil)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), SubjectCampaignDispatched, struct{}{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
