package citizen_test

import (
	"testing"

	"github.com/oda/perudb/internal/citizen"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	c := citizen.Citizen{
		DNI:       12345678,
		Nombres:   "Juan Carlos",
		Apellidos: "Garcia Lopez",
		Direccion: "Av. Arequipa 1234",
	}

	buf := make([]byte, c.SerializedSize())
	n := c.Serialize(buf)
	if n != len(buf) {
		t.Fatalf("Serialize wrote %d bytes, SerializedSize reported %d", n, len(buf))
	}

	got, err := citizen.Deserialize(buf)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if got != c {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, c)
	}
}

func TestSerializeEmptyFields(t *testing.T) {
	c := citizen.Citizen{DNI: 1}

	buf := make([]byte, c.SerializedSize())
	c.Serialize(buf)

	got, err := citizen.Deserialize(buf)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if got != c {
		t.Errorf("round trip mismatch for empty fields: got %+v", got)
	}
}

func TestDeserializeTruncatedBuffer(t *testing.T) {
	c := citizen.Citizen{DNI: 7, Nombres: "Ana", Apellidos: "Flores", Direccion: "Jr. Lima 1"}
	buf := make([]byte, c.SerializedSize())
	c.Serialize(buf)

	if _, err := citizen.Deserialize(buf[:5]); err == nil {
		t.Errorf("expected error deserializing a truncated buffer")
	}
}

func TestSerializedSizeMatchesLayout(t *testing.T) {
	c := citizen.Citizen{DNI: 1, Nombres: "ab", Apellidos: "cde", Direccion: "f"}
	want := 4 + 2 + 2 + 2 + 3 + 2 + 1
	if got := c.SerializedSize(); got != want {
		t.Errorf("expected size %d, got %d", want, got)
	}
}
