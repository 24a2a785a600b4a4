package encode

import (
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/scanwave/internal/domain"
)

// mask builds a bitmap from rows of '#' (exposed) and '.' (dark).
func mask(index int, rows ...string) domain.Bitmap {
	bm := domain.NewBitmap(index, "mask", len(rows[0]), len(rows))
	for r, row := range rows {
		for c, ch := range row {
			bm.Set(c, r, ch == '#')
		}
	}
	return bm
}

func TestSamplesPerPixel(t *testing.T) {
	tests := []struct {
		name         string
		pixels       int
		cycle        time.Duration
		rate         float64
		wantPerPixel int
		wantPerSweep int
		wantErr      bool
	}{
		{"galvo 120px at 100MS/s", 120, 60 * time.Microsecond, 100e6, 50, 6000, false},
		{"one sample per pixel", 4, 4 * time.Microsecond, 1e6, 1, 4, false},
		{"inexact division", 7, 60 * time.Microsecond, 100e6, 0, 0, true},
		{"zero pixels", 0, 60 * time.Microsecond, 100e6, 0, 0, true},
		{"zero rate", 120, 60 * time.Microsecond, 0, 0, 0, true},
		{"zero cycle", 120, 0, 100e6, 0, 0, true},
		{"sweep rounds to zero", 1, time.Nanosecond, 1e3, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perPixel, perSweep, err := SamplesPerPixel(tt.pixels, tt.cycle, tt.rate)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrConfiguration) {
					t.Fatalf("error = %v, want ErrConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if perPixel != tt.wantPerPixel || perSweep != tt.wantPerSweep {
				t.Errorf("got (%d, %d), want (%d, %d)", perPixel, perSweep, tt.wantPerPixel, tt.wantPerSweep)
			}
		})
	}
}

func TestReversed(t *testing.T) {
	tests := []struct {
		i, r int
		want bool
	}{
		{0, 0, false},
		{0, 1, true},
		{0, 2, false},
		{1, 0, true},
		{1, 1, false},
		{2, 1, true},
		{3, 2, true},
	}
	for _, tt := range tests {
		if got := Reversed(true, tt.i, tt.r); got != tt.want {
			t.Errorf("Reversed(true, %d, %d) = %v, want %v", tt.i, tt.r, got, tt.want)
		}
		if Reversed(false, tt.i, tt.r) {
			t.Errorf("Reversed(false, %d, %d) = true", tt.i, tt.r)
		}
	}
}

func TestEncode_SerpentineRows(t *testing.T) {
	enc, err := New(Config{PixelsPerRow: 3, CycleDuration: 6 * time.Microsecond, SampleRate: 1e6, Serpentine: true})
	if err != nil {
		t.Fatal(err)
	}
	if enc.SamplesPerPixel() != 2 {
		t.Fatalf("samples per pixel = %d, want 2", enc.SamplesPerPixel())
	}

	masks := []domain.Bitmap{
		mask(0, "#..", "#.."),
		mask(1, "#..", "#.."),
	}
	got, err := encodeAll(enc, masks)
	if err != nil {
		t.Fatal(err)
	}

	want := []float64{
		1, 1, 0, 0, 0, 0, // mask 0 row 0: forward
		0, 0, 0, 0, 1, 1, // mask 0 row 1: mirrored
		0, 0, 0, 0, 1, 1, // mask 1 row 0: mirrored
		1, 1, 0, 0, 0, 0, // mask 1 row 1: forward
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v (got %v)", i, got[i], want[i], got)
		}
	}
}

func TestEncode_Unidirectional(t *testing.T) {
	enc, err := New(Config{PixelsPerRow: 2, CycleDuration: 2 * time.Microsecond, SampleRate: 1e6})
	if err != nil {
		t.Fatal(err)
	}
	got, err := encodeAll(enc, []domain.Bitmap{mask(0, "#.", "#."), mask(1, "#.")})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 0, 1, 0, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestEncode_LengthAndExpansion(t *testing.T) {
	enc, err := New(Config{PixelsPerRow: 120, CycleDuration: 60 * time.Microsecond, SampleRate: 100e6, Serpentine: true})
	if err != nil {
		t.Fatal(err)
	}
	if enc.SamplesPerSweep() != 6000 || enc.SamplesPerPixel() != 50 {
		t.Fatalf("sweep/pixel = %d/%d, want 6000/50", enc.SamplesPerSweep(), enc.SamplesPerPixel())
	}

	row := make([]byte, 120)
	for i := range row {
		row[i] = '#'
	}
	single := mask(0, string(row))
	got, err := encodeAll(enc, []domain.Bitmap{single})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 6000 {
		t.Fatalf("len = %d, want 6000", len(got))
	}
	for i := 0; i < 50; i++ {
		if got[i] != On {
			t.Fatalf("sample %d = %v, want first pixel level", i, got[i])
		}
	}

	masks := []domain.Bitmap{single, mask(1, string(row), string(row), string(row))}
	want := (1 + 3) * 120 * 50
	if n := enc.Length(masks); n != want {
		t.Errorf("Length = %d, want %d", n, want)
	}
	all, err := encodeAll(enc, masks)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != want {
		t.Errorf("encoded %d samples, want %d", len(all), want)
	}
}

// encodeAll collects every row EncodeRows emits.
func encodeAll(enc *Encoder, bitmaps []domain.Bitmap) ([]float64, error) {
	var out []float64
	err := enc.EncodeRows(bitmaps, func(row []float64) error {
		out = append(out, row...)
		return nil
	})
	return out, err
}

func TestEncodeRows_ShapeCheckedFirst(t *testing.T) {
	enc, err := New(Config{PixelsPerRow: 2, CycleDuration: 2 * time.Microsecond, SampleRate: 1e6})
	if err != nil {
		t.Fatal(err)
	}

	rows := 0
	err = enc.EncodeRows([]domain.Bitmap{mask(0, "#."), mask(1, "#..")}, func([]float64) error {
		rows++
		return nil
	})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
	if rows != 0 {
		t.Errorf("emitted %d rows before the shape error", rows)
	}
}

func TestEncodeRows_StopsOnCallbackError(t *testing.T) {
	enc, err := New(Config{PixelsPerRow: 1, CycleDuration: time.Microsecond, SampleRate: 1e6})
	if err != nil {
		t.Fatal(err)
	}
	sentinel := errors.New("disk full")
	rows := 0
	err = enc.EncodeRows([]domain.Bitmap{mask(0, "#", "#", "#")}, func([]float64) error {
		rows++
		return sentinel
	})
	if !errors.Is(err, sentinel) || rows != 1 {
		t.Fatalf("err = %v after %d rows, want sentinel after 1", err, rows)
	}
}
