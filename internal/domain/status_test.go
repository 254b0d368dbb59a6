package domain

import (
	"errors"
	"testing"
)

func TestStatusLattice(t *testing.T) {
	if !StatusDelivered.After(StatusSent) || !StatusRead.After(StatusDelivered) || !StatusRead.After(StatusSent) {
		t.Fatalf("expected sent < delivered < read")
	}
	if StatusSent.After(StatusSent) || StatusDelivered.After(StatusRead) {
		t.Fatalf("equal or lower status must not be After")
	}
	if _, err := ParseStatus("failed"); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestDecodePayloadUnsupportedKind(t *testing.T) {
	p, err := DecodePayload(Kind("reaction"), []byte(`{"emoji":"+1"}`))
	if err != nil || p != nil {
		t.Fatalf("expected nil payload for unsupported kind, got %#v (err=%v)", p, err)
	}
}

func TestCloneIsolatesContactSlices(t *testing.T) {
	orig := Message{ID: "m", Kind: KindContact, Payload: Contact{Phones: []ContactPhone{{Phone: "1"}}}, SenderProfile: &Profile{DisplayName: "A"}}
	cp := orig.Clone()
	cp.Payload.(Contact).Phones[0].Phone = "2"
	cp.SenderProfile.DisplayName = "B"
	if orig.Payload.(Contact).Phones[0].Phone != "1" || orig.SenderProfile.DisplayName != "A" {
		t.Fatalf("clone shares state with original")
	}
}
