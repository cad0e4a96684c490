package archive

import "testing"

func TestObjectName(t *testing.T) {
	got := ObjectName("run-20260901-120000-abc123")
	want := "runs/run-20260901-120000-abc123.json"
	if got != want {
		t.Errorf("ObjectName = %q, want %q", got, want)
	}
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	_, err := New(Options{Endpoint: "http://not a host", Bucket: "b"}, nil)
	if err == nil {
		t.Error("expected error for malformed endpoint")
	}
}
