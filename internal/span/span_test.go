package span

import "testing"

func TestSignExtend(t *testing.T) {
	cases := []struct {
		value uint32
		bits  uint
		want  int32
	}{
		{0x05, 8, 5},
		{0xFB, 8, -5},
		{0x7FFF, 16, 0x7FFF},
		{0x8000, 16, -0x8000},
		{0x7FFFFFFF, 32, 0x7FFFFFFF},
		{0xFFFFFFFF, 32, -1},
	}
	for _, c := range cases {
		got := SignExtend(c.value, c.bits)
		if got != c.want {
			t.Errorf("SignExtend(0x%x, %d) = %d, want %d", c.value, c.bits, got, c.want)
		}
	}
}

func TestDecodeBE(t *testing.T) {
	b := New([]byte{0x01, 0x02, 0x03})
	got, err := DecodeBE(b)
	if err != nil {
		t.Fatal(err)
	}
	if want := uint64(0x010203); got != want {
		t.Errorf("DecodeBE = 0x%x, want 0x%x", got, want)
	}
}

func TestDecodeLE(t *testing.T) {
	b := New([]byte{0x01, 0x02, 0x03})
	got, err := DecodeLE(b)
	if err != nil {
		t.Fatal(err)
	}
	if want := uint64(0x030201); got != want {
		t.Errorf("DecodeLE = 0x%x, want 0x%x", got, want)
	}
}

func TestSubBoundedView(t *testing.T) {
	b := New([]byte{0, 1, 2, 3, 4, 5})
	sub := b.Sub(2, 3)
	if sub.Len() != 3 || sub.At(0) != 2 || sub.At(2) != 4 {
		t.Fatalf("unexpected sub view: len=%d", sub.Len())
	}
}

func TestTrySubOutOfBounds(t *testing.T) {
	b := New([]byte{0, 1, 2})
	if _, err := b.TrySub(2, 5); err == nil {
		t.Fatal("expected error for out-of-bounds range")
	}
}

func TestCString(t *testing.T) {
	b := New([]byte("foo\x00bar\x00"))
	s, err := CString(b, 0)
	if err != nil || s != "foo" {
		t.Fatalf("CString(0) = %q, %v", s, err)
	}
	s, err = CString(b, 4)
	if err != nil || s != "bar" {
		t.Fatalf("CString(4) = %q, %v", s, err)
	}
}

func TestCStringUnterminated(t *testing.T) {
	b := New([]byte("nonul"))
	if _, err := CString(b, 0); err == nil {
		t.Fatal("expected error for unterminated string")
	}
}
