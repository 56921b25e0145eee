package money

import "testing"

func TestNew_Negative(t *testing.T) {
	_, err := New(-1)
	if err == nil {
		t.Error("expected error for negative amount")
	}
}

func TestNew_Zero(t *testing.T) {
	m, err := New(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.IsZero() {
		t.Error("expected zero amount")
	}
}

func TestAdd(t *testing.T) {
	a := MustNew(50000)
	b := MustNew(150000)
	if got := a.Add(b); got.Int64() != 200000 {
		t.Errorf("expected 200000, got %d", got.Int64())
	}
}

func TestSub(t *testing.T) {
	a := MustNew(200000)
	b := MustNew(50000)
	got, err := a.Sub(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int64() != 150000 {
		t.Errorf("expected 150000, got %d", got.Int64())
	}
}

func TestSub_Underflow(t *testing.T) {
	a := MustNew(100)
	b := MustNew(200)
	_, err := a.Sub(b)
	if err == nil {
		t.Error("expected error when subtrahend exceeds minuend")
	}
	// operands are values; verify they are unchanged
	if a.Int64() != 100 || b.Int64() != 200 {
		t.Error("operands mutated by failed subtraction")
	}
}

func TestMin(t *testing.T) {
	if got := Min(MustNew(50000), MustNew(45000)); got.Int64() != 45000 {
		t.Errorf("expected 45000, got %d", got.Int64())
	}
	if got := Min(MustNew(50000), MustNew(200000)); got.Int64() != 50000 {
		t.Errorf("expected 50000, got %d", got.Int64())
	}
}

func TestMustNew_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative amount")
		}
	}()
	MustNew(-5)
}
