package onnx

import (
	"reflect"
	"strings"
	"testing"
)

func TestNewTensor(t *testing.T) {
	t.Run("float32 ok", func(t *testing.T) {
		tt, err := NewTensor([]float32{1, 2, 3, 4}, []int64{2, 2})
		if err != nil {
			t.Fatalf("NewTensor failed: %v", err)
		}

		if tt.DType() != DTypeFloat32 {
			t.Fatalf("expected dtype float32, got %s", tt.DType())
		}

		if !reflect.DeepEqual(tt.Shape(), []int64{2, 2}) {
			t.Fatalf("unexpected shape: %v", tt.Shape())
		}

		got, err := ExtractFloat32(tt)
		if err != nil {
			t.Fatalf("ExtractFloat32 failed: %v", err)
		}

		if !reflect.DeepEqual(got, []float32{1, 2, 3, 4}) {
			t.Fatalf("unexpected data: %v", got)
		}
	})

	t.Run("int64 ok", func(t *testing.T) {
		tt, err := NewTensor([]int64{7, 8}, []int64{1, 2})
		if err != nil {
			t.Fatalf("NewTensor failed: %v", err)
		}

		if tt.DType() != DTypeInt64 {
			t.Fatalf("expected dtype int64, got %s", tt.DType())
		}

		got, err := ExtractInt64(tt)
		if err != nil {
			t.Fatalf("ExtractInt64 failed: %v", err)
		}

		if !reflect.DeepEqual(got, []int64{7, 8}) {
			t.Fatalf("unexpected data: %v", got)
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := NewTensor([]int64{1, 2, 3}, []int64{2, 2})
		if err == nil {
			t.Fatal("expected shape mismatch error")
		}

		if !strings.Contains(err.Error(), "expects 4 elements, got 3") {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestNewZeroTensor(t *testing.T) {
	tests := []struct {
		name      string
		dtype     TensorDType
		shape     []int64
		wantShape []int64
		wantCount int
	}{
		{
			name:      "float with symbolic batch dim",
			dtype:     DTypeFloat32,
			shape:     []int64{-1, 4},
			wantShape: []int64{1, 4},
			wantCount: 4,
		},
		{
			name:      "int64 fixed shape",
			dtype:     DTypeInt64,
			shape:     []int64{2, 3},
			wantShape: []int64{2, 3},
			wantCount: 6,
		},
		{
			name:      "scalar",
			dtype:     DTypeFloat32,
			shape:     nil,
			wantShape: []int64{},
			wantCount: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewZeroTensor(tt.dtype, tt.shape)
			if err != nil {
				t.Fatalf("NewZeroTensor failed: %v", err)
			}

			if got.DType() != tt.dtype {
				t.Fatalf("expected dtype %s, got %s", tt.dtype, got.DType())
			}

			if len(got.Shape()) != len(tt.wantShape) {
				t.Fatalf("expected shape %v, got %v", tt.wantShape, got.Shape())
			}
			for i, dim := range got.Shape() {
				if dim != tt.wantShape[i] {
					t.Fatalf("expected shape %v, got %v", tt.wantShape, got.Shape())
				}
			}

			if got.ElementCount() != tt.wantCount {
				t.Fatalf("expected %d elements, got %d", tt.wantCount, got.ElementCount())
			}
		})
	}

	t.Run("unsupported dtype", func(t *testing.T) {
		_, err := NewZeroTensor("bool", []int64{1})
		if err == nil {
			t.Fatal("expected unsupported dtype error")
		}
		if !strings.Contains(err.Error(), "unsupported tensor dtype") {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestExtractDTypeMismatch(t *testing.T) {
	tt, err := NewTensor([]float32{1}, []int64{1})
	if err != nil {
		t.Fatalf("NewTensor failed: %v", err)
	}

	if _, err := ExtractInt64(tt); err == nil {
		t.Fatal("expected dtype mismatch error")
	}
}

func TestFirstScalar(t *testing.T) {
	ft, err := NewTensor([]float32{2.5, 9}, []int64{2})
	if err != nil {
		t.Fatalf("NewTensor failed: %v", err)
	}
	v, err := ft.FirstScalar()
	if err != nil {
		t.Fatalf("FirstScalar failed: %v", err)
	}
	if v != 2.5 {
		t.Fatalf("FirstScalar = %v; want 2.5", v)
	}

	it, err := NewTensor([]int64{3}, []int64{1})
	if err != nil {
		t.Fatalf("NewTensor failed: %v", err)
	}
	v, err = it.FirstScalar()
	if err != nil {
		t.Fatalf("FirstScalar failed: %v", err)
	}
	if v != 3 {
		t.Fatalf("FirstScalar = %v; want 3", v)
	}
}

func TestElementCount(t *testing.T) {
	tests := []struct {
		name    string
		shape   []int64
		want    int
		wantErr string
	}{
		{name: "empty shape is scalar", shape: nil, want: 1},
		{name: "row vector", shape: []int64{1, 4}, want: 4},
		{name: "matrix", shape: []int64{3, 5}, want: 15},
		{name: "non-positive dim", shape: []int64{1, 0}, wantErr: "not positive"},
		{name: "overflow", shape: []int64{1 << 40, 1 << 40}, wantErr: "overflows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ElementCount(tt.shape)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ElementCount failed: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ElementCount = %d; want %d", got, tt.want)
			}
		})
	}
}

func TestResolveShape(t *testing.T) {
	got := ResolveShape([]int64{-1, 4, 0})
	if !reflect.DeepEqual(got, []int64{1, 4, 1}) {
		t.Fatalf("ResolveShape = %v; want [1 4 1]", got)
	}
}
