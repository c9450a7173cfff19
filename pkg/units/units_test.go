package units

import "testing"

// Expected binary size multiplier values.
const (
	expectedKiB = 1024
	expectedMiB = 1024 * 1024
	expectedGiB = 1024 * 1024 * 1024
)

func TestBinarySizeConstants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  int64
		want int64
	}{
		{"KiB equals 1024", KiB, expectedKiB},
		{"MiB equals 1024*KiB", MiB, expectedMiB},
		{"GiB equals 1024*MiB", GiB, expectedGiB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.got != tt.want {
				t.Errorf("got %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestParseDescriptor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		descriptor string
		want       int64
	}{
		{"512KB", 524288},
		{"2MB", 2097152},
		{"100", 100},
		{"???", 0},
		{"", 0},
		{"0KB", 0},
		{"12.5KB", 12800},
		{"1.5 MB", 1572864},
		{"1GB", 1073741824},
		{"64B", 64},
		{"2mb", 2097152},
		{"-5KB", 0},
		{"KB", 0},
	}

	for _, tt := range tests {
		t.Run(tt.descriptor, func(t *testing.T) {
			t.Parallel()

			got := ParseDescriptor(tt.descriptor)
			if got != tt.want {
				t.Errorf("ParseDescriptor(%q) = %d, want %d", tt.descriptor, got, tt.want)
			}
		})
	}
}
