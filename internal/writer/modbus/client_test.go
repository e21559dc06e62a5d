package modbus

import "testing"

func TestPackRegisters_BigEndian(t *testing.T) {
	got := packRegisters([]uint16{0x0102, 0xFFC9})
	want := []byte{0x01, 0x02, 0xFF, 0xC9}
	if len(got) != len(want) {
		t.Fatalf("len got=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d got=%#02x want=%#02x", i, got[i], want[i])
		}
	}
}

func TestWriteRegisters_RejectsBadCount(t *testing.T) {
	c := &EndpointClient{}
	if err := c.WriteRegisters(1, 0, nil); err == nil {
		t.Fatalf("expected error for empty write")
	}
	if err := c.WriteRegisters(1, 0, make([]uint16, MaxWriteRegisters+1)); err == nil {
		t.Fatalf("expected error for oversized write")
	}
}

func TestNewEndpointClient_RequiresEndpoint(t *testing.T) {
	if _, err := NewEndpointClient(Config{}); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}
