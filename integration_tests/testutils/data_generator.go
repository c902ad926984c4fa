// Package testutils generates realistic roster data for integration tests.
package testutils

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// RosterRow is one athlete line as it would appear in an uploaded sheet.
type RosterRow struct {
	FirstName string
	LastName  string
	Jersey    string
	Position  string
	GradYear  string
	DashTime  float64
	Vertical  float64
}

// TestDataGenerator provides methods to create test data for integration
// tests. A fixed seed makes failures reproducible.
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a new test data generator with optional seed.
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}

	return &TestDataGenerator{
		faker: gofakeit.New(uint64(s)),
		seed:  s,
	}
}

// Seed returns the seed used by this generator.
func (g *TestDataGenerator) Seed() int64 { return g.seed }

var positions = []string{"QB", "RB", "WR", "TE", "OL", "DL", "LB", "CB", "S", "K"}

// GenerateRoster creates count distinct athletes. Names are de-duplicated so
// generated rosters never collide on the player identity key.
func (g *TestDataGenerator) GenerateRoster(count int) []RosterRow {
	rows := make([]RosterRow, 0, count)
	seen := map[string]bool{}

	for len(rows) < count {
		first := g.faker.FirstName()
		last := g.faker.LastName()
		key := strings.ToLower(first) + "|" + strings.ToLower(last)
		if seen[key] {
			continue
		}
		seen[key] = true

		rows = append(rows, RosterRow{
			FirstName: first,
			LastName:  last,
			Jersey:    g.faker.Numerify("##"),
			Position:  positions[g.faker.Number(0, len(positions)-1)],
			GradYear:  fmt.Sprintf("%d", g.faker.Number(2026, 2030)),
			DashTime:  g.faker.Float64Range(4.2, 6.5),
			Vertical:  g.faker.Float64Range(12, 42),
		})
	}
	return rows
}

// RosterCSV renders rows as the kind of CSV a coach would upload.
func (g *TestDataGenerator) RosterCSV(rows []RosterRow) string {
	var b strings.Builder
	b.WriteString("First Name,Last Name,Jersey,Position,Grad Year,40 Yard Dash,Vertical Jump\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,%.2f,%.1f\n",
			r.FirstName, r.LastName, r.Jersey, r.Position, r.GradYear, r.DashTime, r.Vertical)
	}
	return b.String()
}
