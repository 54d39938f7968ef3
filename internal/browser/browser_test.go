package browser

import (
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.Headless {
		t.Error("Expected headless to be true by default")
	}

	if opts.Timeout != 30*time.Second {
		t.Errorf("Expected timeout to be 30s, got %v", opts.Timeout)
	}

	if opts.ViewportWidth != 1920 || opts.ViewportHeight != 1080 {
		t.Errorf("Expected viewport to be 1920x1080, got %dx%d", opts.ViewportWidth, opts.ViewportHeight)
	}

	if opts.Locale != "en-US" {
		t.Errorf("Expected locale to be en-US, got %s", opts.Locale)
	}
}

func TestWithDefaults(t *testing.T) {
	var nilOpts *Options
	if got := nilOpts.withDefaults(); got.Timeout != 30*time.Second {
		t.Errorf("Expected nil options to use defaults, got timeout %v", got.Timeout)
	}

	opts := &Options{Headless: false, Timeout: 5 * time.Second}
	got := opts.withDefaults()

	if got.Headless {
		t.Error("Expected explicit headless=false to be kept")
	}
	if got.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", got.Timeout)
	}
	if got.UserAgent == "" || got.Locale != "en-US" {
		t.Errorf("Expected zero fields to be filled, got %+v", got)
	}
	if opts.UserAgent != "" {
		t.Error("Expected caller options to stay untouched")
	}
}

func TestIsBotCheck(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		content  string
		expected bool
	}{
		{"Captcha title", "Robot Check", "", true},
		{"Captcha form", "Amazon.com", `<form action="/errors/validateCaptcha">`, true},
		{"Captcha prompt", "", "Enter the characters you see below", true},
		{"Product page", "Thinking, Fast and Slow", "<div id=\"dp\"></div>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBotCheck(tt.title, tt.content); got != tt.expected {
				t.Errorf("IsBotCheck(%q) = %v, want %v", tt.title, got, tt.expected)
			}
		})
	}
}
