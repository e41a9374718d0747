// Package generate produces synthetic surrogate values for detected
// entities. It wraps a fake-data source behind a small interface so the
// replacement strategies can be tested with a deterministic generator.
package generate

import (
	"fmt"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"golang.org/x/text/language"
)

// Age bounds for generated people.
const (
	MinAge = 18
	MaxAge = 80
)

// Generator produces one synthetic value per category. Implementations must
// be safe for concurrent use.
type Generator interface {
	Name() string
	FirstName() string
	LastName() string
	Email() string
	Phone() string
	Address() string
	Company() string
	City() string
	State() string
	JobTitle() string
	Age() int
	// DateBetween returns a date in [start, end].
	DateBetween(start, end time.Time) time.Time
}

// Faker is the gofakeit-backed Generator used in production.
type Faker struct {
	f      *gofakeit.Faker
	locale language.Tag
}

// NewFaker builds a generator for the given BCP 47 locale string. The locale
// is validated up front so a bad configuration fails at construction rather
// than mid-pipeline. Seed zero selects a random source.
func NewFaker(locale string, seed uint64) (*Faker, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return &Faker{f: gofakeit.New(seed), locale: tag}, nil
}

// Locale returns the parsed locale tag the generator was built with.
func (g *Faker) Locale() language.Tag { return g.locale }

func (g *Faker) Name() string      { return g.f.Name() }
func (g *Faker) FirstName() string { return g.f.FirstName() }
func (g *Faker) LastName() string  { return g.f.LastName() }
func (g *Faker) Email() string     { return g.f.Email() }
func (g *Faker) Phone() string     { return g.f.Phone() }
func (g *Faker) Company() string   { return g.f.Company() }
func (g *Faker) City() string      { return g.f.City() }
func (g *Faker) State() string     { return g.f.State() }
func (g *Faker) JobTitle() string  { return g.f.JobTitle() }

// Address returns a single-line street address.
func (g *Faker) Address() string {
	a := g.f.Address()
	return fmt.Sprintf("%s, %s, %s %s", a.Street, a.City, a.State, a.Zip)
}

// Age returns an adult age.
func (g *Faker) Age() int { return g.f.Number(MinAge, MaxAge) }

// DateBetween returns a date in [start, end].
func (g *Faker) DateBetween(start, end time.Time) time.Time {
	return g.f.DateRange(start, end)
}

// ForCategory maps a value category name to a generated value. Unknown
// categories fall back to a full name, the most common entity kind.
func ForCategory(g Generator, category string) string {
	switch category {
	case "name", "person":
		return g.Name()
	case "first_name":
		return g.FirstName()
	case "last_name":
		return g.LastName()
	case "email":
		return g.Email()
	case "phone", "phone_number":
		return g.Phone()
	case "address":
		return g.Address()
	case "company", "organization":
		return g.Company()
	case "city":
		return g.City()
	case "state":
		return g.State()
	case "job", "job_title", "profession":
		return g.JobTitle()
	case "age":
		return strconv.Itoa(g.Age())
	default:
		return g.Name()
	}
}
