package cardano

import "testing"

func testPolicy(b byte) PolicyId {
	var p PolicyId
	p[0] = b
	return p
}

func TestValueWithAssetAccumulates(t *testing.T) {
	v := NewValue(0)
	v = v.WithAsset(testPolicy(1), []byte("tok"), 5)
	v = v.WithAsset(testPolicy(1), []byte("tok"), 3)
	if got := v.AssetAmount(testPolicy(1), []byte("tok")); got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
}

func TestValueWithAssetRemovesZeroQuantity(t *testing.T) {
	v := NewValue(0).WithAsset(testPolicy(1), []byte("tok"), 5)
	v = v.WithAsset(testPolicy(1), []byte("tok"), -5)
	if v.HasAssets() {
		t.Fatal("expected no assets after quantity reaches zero")
	}
}

func TestValueAddCombinesCoinAndAssets(t *testing.T) {
	a := NewValue(10).WithAsset(testPolicy(1), []byte("tok"), 2)
	b := NewValue(5).WithAsset(testPolicy(1), []byte("tok"), 3)
	sum := a.Add(b)
	if sum.Coin != 15 {
		t.Fatalf("expected coin 15, got %d", sum.Coin)
	}
	if got := sum.AssetAmount(testPolicy(1), []byte("tok")); got != 5 {
		t.Fatalf("expected asset amount 5, got %d", got)
	}
}

func TestValueSubRejectsCoinUnderflow(t *testing.T) {
	a := NewValue(5)
	b := NewValue(10)
	if _, err := a.Sub(b); err == nil {
		t.Fatal("expected coin underflow error")
	}
}

func TestValueSubRejectsAssetUnderflow(t *testing.T) {
	a := NewValue(10).WithAsset(testPolicy(1), []byte("tok"), 2)
	b := NewValue(0).WithAsset(testPolicy(1), []byte("tok"), 3)
	if _, err := a.Sub(b); err == nil {
		t.Fatal("expected asset underflow error")
	}
}

func TestValueGreaterOrEqual(t *testing.T) {
	v := NewValue(10).WithAsset(testPolicy(1), []byte("tok"), 5)
	need := NewValue(5).WithAsset(testPolicy(1), []byte("tok"), 5)
	if !v.GreaterOrEqual(need) {
		t.Fatal("expected v to satisfy need")
	}
	tooMuch := NewValue(5).WithAsset(testPolicy(1), []byte("tok"), 6)
	if v.GreaterOrEqual(tooMuch) {
		t.Fatal("expected v to fall short of tooMuch")
	}
}

func TestValueCloneIsIndependent(t *testing.T) {
	v := NewValue(10).WithAsset(testPolicy(1), []byte("tok"), 5)
	clone := v.Clone()
	clone = clone.WithAsset(testPolicy(1), []byte("tok"), 100)
	if got := v.AssetAmount(testPolicy(1), []byte("tok")); got != 5 {
		t.Fatalf("original value mutated: got %d", got)
	}
}

func TestValueIsZero(t *testing.T) {
	if !NewValue(0).IsZero() {
		t.Fatal("expected zero value")
	}
	if NewValue(1).IsZero() {
		t.Fatal("expected non-zero value")
	}
}
