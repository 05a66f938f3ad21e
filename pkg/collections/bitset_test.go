package collections

import "testing"

func TestBitset_Basic(t *testing.T) {
	b := NewBitset(100)

	b.Set(0)
	b.Set(50)
	b.Set(99)
	b.Set(100) // out of range

	for _, i := range []uint64{0, 50, 99} {
		if !b.Test(i) {
			t.Errorf("Expected bit %d to be set", i)
		}
	}
	if b.Test(1) || b.Test(100) {
		t.Error("Expected bits 1 and 100 to be clear")
	}
	if b.Count() != 3 {
		t.Errorf("Expected count 3, got %d", b.Count())
	}

	b.Clear(50)
	if b.Test(50) {
		t.Error("Expected bit 50 to be clear after Clear")
	}
	if b.Count() != 2 {
		t.Errorf("Expected count 2 after Clear, got %d", b.Count())
	}

	b.ClearAll()
	if b.Count() != 0 {
		t.Errorf("Expected empty set after ClearAll, got %d", b.Count())
	}
	if b.Size() != 100 {
		t.Errorf("Expected size 100, got %d", b.Size())
	}
}

func TestBitset_Iterate(t *testing.T) {
	b := NewBitset(200)
	want := []uint64{3, 64, 65, 130, 199}
	for _, i := range want {
		b.Set(i)
	}

	var got []uint64
	b.Iterate(func(i uint64) bool {
		got = append(got, i)
		return true
	})
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
			break
		}
	}

	var first []uint64
	b.Iterate(func(i uint64) bool {
		first = append(first, i)
		return len(first) < 2
	})
	if len(first) != 2 {
		t.Errorf("Expected early stop after 2 members, got %v", first)
	}
}

func BenchmarkBitset_Set(b *testing.B) {
	bs := NewBitset(1 << 16)
	for i := 0; i < b.N; i++ {
		bs.Set(uint64(i) & (1<<16 - 1))
	}
}
