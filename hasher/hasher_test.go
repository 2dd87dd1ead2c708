package hasher

import (
	"testing"
)

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "empty input",
			data: []byte{},
			want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name: "nil input",
			data: nil,
			want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name: "simple bytes",
			data: []byte("hello"),
			want: "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint(tt.data)
			if got != tt.want {
				t.Errorf("Fingerprint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	data := []byte("road damage photo bytes")
	first := Fingerprint(data)
	second := Fingerprint(data)
	if first != second {
		t.Errorf("same bytes produced different fingerprints: %q vs %q", first, second)
	}

	other := Fingerprint([]byte("road damage photo bytes!"))
	if other == first {
		t.Errorf("different bytes produced the same fingerprint %q", first)
	}

	if len(first) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(first))
	}
}
