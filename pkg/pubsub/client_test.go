package pubsub

import (
	"context"
	"testing"
)

func TestTopicResourceName(t *testing.T) {
	tests := []struct {
		project string
		name    string
		want    string
	}{
		{project: "hub", name: "license-events", want: "projects/hub/topics/license-events"},
		{project: "hub", name: " projects/other/topics/x ", want: "projects/other/topics/x"},
		{project: "", name: "license-events", want: ""},
		{project: "hub", name: "  ", want: ""},
	}
	for _, tt := range tests {
		if got := topicResourceName(tt.project, tt.name); got != tt.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tt.project, tt.name, got, tt.want)
		}
	}
}

func TestNilPublisherFails(t *testing.T) {
	var p *TopicPublisher
	if _, err := p.Publish(context.Background(), []byte("{}"), nil); err == nil {
		t.Fatal("expected nil publisher to fail")
	}
	p.Stop()

	var c *Client
	if c.Publisher("topic") != nil {
		t.Fatal("nil client should not return a publisher")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("nil client ping should fail")
	}
}
