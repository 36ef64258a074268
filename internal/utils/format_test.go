package utils

import (
	"testing"
	"time"
)

func TestNumber(t *testing.T) {
	cases := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		1234567:  "1,234,567",
		-4500:    "-4,500",
		10000000: "10,000,000",
	}

	for in, want := range cases {
		if got := Number(in); got != want {
			t.Errorf("Number(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestBytes(t *testing.T) {
	cases := map[int64]string{
		0:          "0 B",
		1023:       "1023 B",
		1024:       "1.0 KiB",
		1536:       "1.5 KiB",
		5 << 20:    "5.0 MiB",
		3221225472: "3.0 GiB",
	}

	for in, want := range cases {
		if got := Bytes(in); got != want {
			t.Errorf("Bytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestDuration(t *testing.T) {
	cases := map[time.Duration]string{
		500 * time.Millisecond:        "0s",
		5200 * time.Millisecond:       "5.2s",
		3*time.Minute + 5*time.Second: "3m5.0s",
		2*time.Hour + 15*time.Minute:  "2h15m",
		26*time.Hour + 59*time.Second: "26h0m",
	}

	for in, want := range cases {
		if got := Duration(in); got != want {
			t.Errorf("Duration(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestRate(t *testing.T) {
	cases := map[float64]string{
		123.456:   "123.46",
		12346:     "12.35K",
		2_500_000: "2.50M",
	}

	for in, want := range cases {
		if got := Rate(in); got != want {
			t.Errorf("Rate(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestProgress_DisabledIsNoop(t *testing.T) {
	p := NewProgress(100, false)
	if p.Enabled() {
		t.Fatal("disabled progress reports enabled")
	}

	p.Add(10, "file")
	p.Finish()
}
