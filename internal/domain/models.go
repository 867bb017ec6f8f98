// Package domain defines the core business entities for the supervisor BFA.
// These models are independent of external services and represent the
// canonical data structures used throughout the service.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ============================================================
// Canonical keys
// ============================================================

// CanonicalKey normalises a role or skill name into the single form used as a
// map key and for comparisons: inner whitespace collapsed, trimmed, upper-cased.
func CanonicalKey(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// CanonicalKeys applies CanonicalKey to every entry, dropping blanks.
func CanonicalKeys(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if k := CanonicalKey(s); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// ============================================================
// Calendar dates
// ============================================================

const dateLayout = "2006-01-02"

// Date is a calendar day in UTC. Expiry, deadline and recurrence checks all
// compare Dates, never instants, so the result does not depend on the
// server's time zone.
type Date struct {
	time.Time
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar day in UTC.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate accepts YYYY-MM-DD or RFC3339.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	return DateOf(t), nil
}

// AddDays returns the date n calendar days later (earlier when n < 0).
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

// DaysUntil returns the number of days from d to o (negative when o is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.Time.Sub(d.Time).Hours() / 24)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ============================================================
// Operators & skills
// ============================================================

// MaxSkillLevel is the top of the 0–4 skill scale.
const MaxSkillLevel = 4

// SkillLevel holds the target (p) and real (r) level of one skill.
// Real is nil while the skill has not been assessed.
type SkillLevel struct {
	Target int  `json:"p"`
	Real   *int `json:"r"`
}

// Level returns a pointer to n, for building SkillLevel literals.
func Level(n int) *int {
	return &n
}

// Operator is an employee supervised by the owning user (uid).
type Operator struct {
	ID     string                `json:"id"`
	UID    string                `json:"uid"`
	Name   string                `json:"name"`
	Role   string                `json:"role"`
	Skills map[string]SkillLevel `json:"skills"`
}

// Normalize canonicalises the role and every skill key in place.
func (o *Operator) Normalize() {
	o.Name = strings.TrimSpace(o.Name)
	o.Role = CanonicalKey(o.Role)
	if o.Skills == nil {
		o.Skills = map[string]SkillLevel{}
		return
	}
	skills := make(map[string]SkillLevel, len(o.Skills))
	for name, lvl := range o.Skills {
		if k := CanonicalKey(name); k != "" {
			skills[k] = lvl
		}
	}
	o.Skills = skills
}

// SkillConfig defines the canonical target level per role for one skill.
type SkillConfig struct {
	ID          string         `json:"id"`
	UID         string         `json:"uid"`
	Name        string         `json:"name"`
	Topic       string         `json:"topic"`
	RolePrereqs map[string]int `json:"rolePrereqs"`
}

// Key is the canonical skill key used in Operator.Skills.
func (c SkillConfig) Key() string {
	return CanonicalKey(c.Name)
}

// Normalize canonicalises the role keys and clamps levels to 0..MaxSkillLevel.
func (c *SkillConfig) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	prereqs := make(map[string]int, len(c.RolePrereqs))
	for role, lvl := range c.RolePrereqs {
		k := CanonicalKey(role)
		if k == "" {
			continue
		}
		prereqs[k] = clampLevel(lvl)
	}
	c.RolePrereqs = prereqs
}

func clampLevel(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxSkillLevel {
		return MaxSkillLevel
	}
	return n
}
