package generate

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestNewFakerRejectsBadLocale(t *testing.T) {
	if _, err := NewFaker("not a locale!!", 1); err == nil {
		t.Fatal("expected error for malformed locale, got nil")
	}
}

func TestNewFakerParsesLocale(t *testing.T) {
	g, err := NewFaker("en-US", 1)
	if err != nil {
		t.Fatalf("NewFaker: %v", err)
	}
	if got := g.Locale().String(); got != "en-US" {
		t.Errorf("locale = %q, want en-US", got)
	}
}

func TestFakerProducesNonEmptyValues(t *testing.T) {
	g, err := NewFaker("en-US", 42)
	if err != nil {
		t.Fatalf("NewFaker: %v", err)
	}

	values := map[string]string{
		"name":       g.Name(),
		"first name": g.FirstName(),
		"last name":  g.LastName(),
		"email":      g.Email(),
		"phone":      g.Phone(),
		"address":    g.Address(),
		"company":    g.Company(),
		"city":       g.City(),
		"state":      g.State(),
		"job title":  g.JobTitle(),
	}
	for kind, v := range values {
		if strings.TrimSpace(v) == "" {
			t.Errorf("%s is empty", kind)
		}
	}
}

func TestFakerEmailContainsAt(t *testing.T) {
	g, err := NewFaker("en-US", 42)
	if err != nil {
		t.Fatalf("NewFaker: %v", err)
	}
	if email := g.Email(); !strings.Contains(email, "@") {
		t.Errorf("email %q has no @", email)
	}
}

func TestFakerAgeWithinBounds(t *testing.T) {
	g, err := NewFaker("en-US", 42)
	if err != nil {
		t.Fatalf("NewFaker: %v", err)
	}
	for i := 0; i < 50; i++ {
		if age := g.Age(); age < MinAge || age > MaxAge {
			t.Fatalf("age %d outside [%d, %d]", age, MinAge, MaxAge)
		}
	}
}

func TestFakerDateBetween(t *testing.T) {
	g, err := NewFaker("en-US", 42)
	if err != nil {
		t.Fatalf("NewFaker: %v", err)
	}
	start := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2000, 12, 31, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		d := g.DateBetween(start, end)
		if d.Before(start) || d.After(end) {
			t.Fatalf("date %v outside [%v, %v]", d, start, end)
		}
	}
}

func TestForCategory(t *testing.T) {
	g, err := NewFaker("en-US", 42)
	if err != nil {
		t.Fatalf("NewFaker: %v", err)
	}

	categories := []string{
		"name", "first_name", "last_name", "email", "phone", "address",
		"company", "city", "state", "job", "age", "something_unknown",
	}
	for _, c := range categories {
		v := ForCategory(g, c)
		if strings.TrimSpace(v) == "" {
			t.Errorf("category %q produced empty value", c)
		}
		if c == "age" {
			if _, err := strconv.Atoi(v); err != nil {
				t.Errorf("age %q is not numeric", v)
			}
		}
	}
}
