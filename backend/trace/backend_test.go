package trace

import (
	"testing"

	"github.com/gogpu/gpgpu/backend"
)

func TestBackendRegistered(t *testing.T) {
	b, err := backend.Open(backend.BackendTrace)
	if err != nil {
		t.Fatalf("Open(trace) error = %v", err)
	}
	tb, ok := b.(*Backend)
	if !ok {
		t.Fatalf("Open(trace) = %T, want *Backend", b)
	}
	if b.Adapter() == nil || tb.Trace() == nil {
		t.Fatal("Adapter() is nil after Init")
	}
	b.Close()
	if b.Adapter() != nil {
		t.Error("Adapter() is not nil after Close")
	}
}
