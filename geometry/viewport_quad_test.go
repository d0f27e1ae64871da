package geometry

import (
	"testing"

	"github.com/gogpu/gpgpu/backend/trace"
	"github.com/gogpu/gpgpu/gpucore"
)

func TestViewportQuad_Lazy(t *testing.T) {
	a := trace.New()
	q := NewViewportQuad(a)

	if n := a.Live(gpucore.KindBuffer); n != 0 {
		t.Fatalf("quad allocated before first use: %d buffers", n)
	}

	first, err := q.VertexArray()
	if err != nil {
		t.Fatal(err)
	}
	second, err := q.VertexArray()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("VertexArray() returned a different array on second call")
	}
	if first.VertexCount != 4 || first.IndexCount != 6 {
		t.Errorf("quad counts = %d vertices, %d indices; want 4, 6", first.VertexCount, first.IndexCount)
	}
	if got := a.Count("CreateBuffer"); got != 2 {
		t.Errorf("CreateBuffer calls = %d, want 2", got)
	}
	if !q.Owns(first) {
		t.Error("Owns(quad) = false")
	}
	if q.Owns(&VertexArray{}) {
		t.Error("Owns(other) = true")
	}
}

func TestViewportQuad_Destroy(t *testing.T) {
	a := trace.New()
	q := NewViewportQuad(a)
	va, err := q.VertexArray()
	if err != nil {
		t.Fatal(err)
	}

	q.Destroy()
	if !va.IsDestroyed() {
		t.Error("quad not destroyed")
	}
	if n := a.Live(gpucore.KindBuffer); n != 0 {
		t.Errorf("live buffers = %d, want 0", n)
	}

	again, err := q.VertexArray()
	if err != nil {
		t.Fatal(err)
	}
	if again == va {
		t.Error("VertexArray() after Destroy returned the destroyed array")
	}
}

func TestViewportQuad_Coverage(t *testing.T) {
	// Every corner of clip space appears exactly once.
	corners := map[[2]float32]bool{}
	for i := 0; i < len(viewportQuadVertices); i += 4 {
		corners[[2]float32{viewportQuadVertices[i], viewportQuadVertices[i+1]}] = true
	}
	for _, c := range [][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
		if !corners[c] {
			t.Errorf("corner %v missing from quad", c)
		}
	}
	if len(viewportQuadIndices) != 6 {
		t.Errorf("quad has %d indices, want two triangles", len(viewportQuadIndices))
	}
}
