// SPDX-License-Identifier: MIT
package profile

import "testing"

func TestCatalogLookup(t *testing.T) {
	catalog := NewCatalog()

	p, err := catalog.Lookup("standard")
	if err != nil {
		t.Fatalf("Lookup(standard): %v", err)
	}
	if p.SampleRate != 16000 || p.WindowSize != 2048 || p.HopSize != 256 {
		t.Errorf("standard profile = %+v", p)
	}

	if _, err := catalog.Lookup("imaginary"); err == nil {
		t.Error("Lookup of unknown profile succeeded")
	}

	names := catalog.Names()
	expected := []string{"high", "low", "standard", "ultra"}
	if len(names) != len(expected) {
		t.Fatalf("Names() = %v, want %v", names, expected)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Fatalf("Names() = %v, want %v", names, expected)
		}
	}
}

func TestCatalogRegister(t *testing.T) {
	catalog := NewCatalog()

	custom := Profile{Name: "voice", SampleRate: 8000, WindowSize: 512, HopSize: 128, MaxFreqBin: 200}
	if err := catalog.Register(custom); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := catalog.Lookup("voice")
	if err != nil {
		t.Fatalf("Lookup(voice): %v", err)
	}
	if got != custom {
		t.Errorf("Lookup(voice) = %+v, want %+v", got, custom)
	}

	if err := catalog.Register(Profile{Name: "", SampleRate: 8000, WindowSize: 512, HopSize: 128, MaxFreqBin: 200}); err == nil {
		t.Error("Register accepted an unnamed profile")
	}
}

func TestBuiltinPresetsValid(t *testing.T) {
	catalog := NewCatalog()
	for _, name := range catalog.Names() {
		p, _ := catalog.Lookup(name)
		if err := p.Validate(); err != nil {
			t.Errorf("preset %q invalid: %v", name, err)
		}
	}
}

func TestProfileValidate(t *testing.T) {
	valid := Profile{Name: "t", SampleRate: 16000, WindowSize: 2048, HopSize: 256, MaxFreqBin: 1024}

	tests := []struct {
		desc   string
		mutate func(*Profile)
	}{
		{"Zero sample rate", func(p *Profile) { p.SampleRate = 0 }},
		{"Non-power-of-2 window", func(p *Profile) { p.WindowSize = 2000 }},
		{"Zero hop", func(p *Profile) { p.HopSize = 0 }},
		{"Hop larger than window", func(p *Profile) { p.HopSize = 4096 }},
		{"Zero cutoff", func(p *Profile) { p.MaxFreqBin = 0 }},
		{"Cutoff past Nyquist bins", func(p *Profile) { p.MaxFreqBin = 1025 }},
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid profile rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Errorf("Validate accepted %+v", p)
			}
		})
	}
}

func TestBinsForFrequency(t *testing.T) {
	p := Profile{Name: "t", SampleRate: 16000, WindowSize: 2048, HopSize: 256, MaxFreqBin: 1024}
	// 7.8125 Hz per bin.
	tests := []struct {
		hz       float64
		expected int
	}{
		{0, 1},        // clamped up
		{7.8125, 1},   // exactly one bin
		{4000, 512},   // half of Nyquist
		{8000, 1024},  // Nyquist
		{20000, 1024}, // clamped down
	}

	for _, tt := range tests {
		if got := p.BinsForFrequency(tt.hz); got != tt.expected {
			t.Errorf("BinsForFrequency(%g) = %d, want %d", tt.hz, got, tt.expected)
		}
	}
}

func TestFrameCountAndDuration(t *testing.T) {
	p := Profile{Name: "t", SampleRate: 16000, WindowSize: 2048, HopSize: 256, MaxFreqBin: 1024}

	if got := p.FrameCount(16000); got != 55 {
		t.Errorf("FrameCount(16000) = %d, want 55", got)
	}
	if got := p.FrameCount(2047); got != 0 {
		t.Errorf("FrameCount(2047) = %d, want 0", got)
	}
	if got := p.Duration(16000).Seconds(); got != 1 {
		t.Errorf("Duration(16000) = %gs, want 1s", got)
	}
}
