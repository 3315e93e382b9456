// Package catalog holds the static achievement catalog. The catalog is loaded
// once at startup from an embedded YAML file, validated, and read-only from
// then on.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Rarity levels.
const (
	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// ConditionKind identifies the evaluation rule for an achievement condition.
// The set is closed: the evaluator switches exhaustively over these values
// and Validate rejects catalogs naming anything else.
type ConditionKind string

// Condition kinds.
const (
	KindFirstAction            ConditionKind = "first_action"
	KindTaskCount              ConditionKind = "task_count"
	KindStreakDays             ConditionKind = "streak_days"
	KindTotalCompletions       ConditionKind = "total_completions"
	KindAllHabitsStreak        ConditionKind = "all_habits_streak"
	KindPerfectWeek            ConditionKind = "perfect_week"
	KindMultiHabitSameDay      ConditionKind = "multi_habit_same_day"
	KindMultiHabitStreak       ConditionKind = "multi_habit_streak"
	KindEarlyCompletion        ConditionKind = "early_completion"
	KindEveningCompletion      ConditionKind = "evening_completion"
	KindDateSpecific           ConditionKind = "date_specific"
	KindAppAnniversary         ConditionKind = "app_anniversary"
	KindStreakRecovery         ConditionKind = "streak_recovery"
	KindWeekendStreak          ConditionKind = "weekend_streak"
	KindTotalHabitsCompletions ConditionKind = "total_habits_completions"
	KindConcurrentStreaks      ConditionKind = "concurrent_streaks"
	KindGoalStreakDays         ConditionKind = "goal_streak_days"
	KindGoalAllStreak          ConditionKind = "goal_all_streak"
)

// knownKinds is the closed set accepted by Validate.
var knownKinds = map[ConditionKind]bool{
	KindFirstAction: true, KindTaskCount: true, KindStreakDays: true,
	KindTotalCompletions: true, KindAllHabitsStreak: true, KindPerfectWeek: true,
	KindMultiHabitSameDay: true, KindMultiHabitStreak: true,
	KindEarlyCompletion: true, KindEveningCompletion: true,
	KindDateSpecific: true, KindAppAnniversary: true, KindStreakRecovery: true,
	KindWeekendStreak: true, KindTotalHabitsCompletions: true,
	KindConcurrentStreaks: true, KindGoalStreakDays: true, KindGoalAllStreak: true,
}

var validRarities = map[string]bool{
	RarityCommon: true, RarityUncommon: true, RarityRare: true,
	RarityEpic: true, RarityLegendary: true,
}

// Condition is the tagged variant describing when an achievement unlocks.
// Which auxiliary fields apply depends on Type.
type Condition struct {
	Type          ConditionKind `yaml:"type" json:"type"`
	Value         int           `yaml:"value" json:"value"`
	Days          int           `yaml:"days,omitempty" json:"days,omitempty"`                       // multi_habit_streak, concurrent_streaks
	Time          string        `yaml:"time,omitempty" json:"time,omitempty"`                       // "HH:MM", early/evening_completion
	Date          string        `yaml:"date,omitempty" json:"date,omitempty"`                       // "MM-DD", date_specific
	Action        string        `yaml:"action,omitempty" json:"action,omitempty"`                   // first_action trigger name
	MinLostStreak int           `yaml:"min_lost_streak,omitempty" json:"min_lost_streak,omitempty"` // streak_recovery
}

// Definition is one immutable catalog entry.
type Definition struct {
	ID             string    `yaml:"id" json:"id"`
	Name           string    `yaml:"name" json:"name"`
	Description    string    `yaml:"description" json:"description"`
	Icon           string    `yaml:"icon" json:"icon"`
	Category       string    `yaml:"category" json:"category"`
	Rarity         string    `yaml:"rarity" json:"rarity"`
	Condition      Condition `yaml:"condition" json:"condition"`
	PrerequisiteID string    `yaml:"prerequisite,omitempty" json:"prerequisite,omitempty"`
	Hidden         bool      `yaml:"hidden,omitempty" json:"hidden,omitempty"`
}

// Catalog is an ordered, validated list of achievement definitions.
type Catalog struct {
	defs  []Definition
	byID  map[string]*Definition
	order map[string]int
}

// Load parses and validates the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

// Parse builds a catalog from YAML data.
func Parse(data []byte) (*Catalog, error) {
	var raw struct {
		Achievements []Definition `yaml:"achievements"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse achievement catalog: %w", err)
	}

	c := &Catalog{
		defs:  raw.Achievements,
		byID:  make(map[string]*Definition, len(raw.Achievements)),
		order: make(map[string]int, len(raw.Achievements)),
	}
	for i := range c.defs {
		c.byID[c.defs[i].ID] = &c.defs[i]
		c.order[c.defs[i].ID] = i
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid achievement catalog: %w", err)
	}
	return c, nil
}

// Validate checks catalog invariants: non-empty unique IDs, known kinds and
// rarities, prerequisites that reference existing entries, and an acyclic
// prerequisite graph.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.defs))
	for i := range c.defs {
		d := &c.defs[i]
		if d.ID == "" {
			return fmt.Errorf("achievement at index %d has an empty id", i)
		}
		if seen[d.ID] {
			return fmt.Errorf("duplicate achievement id %q", d.ID)
		}
		seen[d.ID] = true

		if !knownKinds[d.Condition.Type] {
			return fmt.Errorf("achievement %q has unknown condition type %q", d.ID, d.Condition.Type)
		}
		if !validRarities[d.Rarity] {
			return fmt.Errorf("achievement %q has invalid rarity %q", d.ID, d.Rarity)
		}
		if d.PrerequisiteID != "" {
			if _, ok := c.byID[d.PrerequisiteID]; !ok {
				return fmt.Errorf("achievement %q references missing prerequisite %q", d.ID, d.PrerequisiteID)
			}
		}
	}

	// Cycle check: walk the prerequisite chain from each node. Chains are
	// single-parent, so a visited set per walk is enough.
	for i := range c.defs {
		visited := map[string]bool{c.defs[i].ID: true}
		cur := c.defs[i].PrerequisiteID
		for cur != "" {
			if visited[cur] {
				return fmt.Errorf("prerequisite cycle involving achievement %q", c.defs[i].ID)
			}
			visited[cur] = true
			cur = c.byID[cur].PrerequisiteID
		}
	}

	return nil
}

// All returns the definitions in catalog order. Callers must not mutate it.
func (c *Catalog) All() []Definition {
	return c.defs
}

// Get returns the definition with the given ID, or nil.
func (c *Catalog) Get(id string) *Definition {
	return c.byID[id]
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// SiblingsOfKind returns, in catalog order, all definitions sharing the given
// condition kind. Used for tier ladders whose progress is updated together.
func (c *Catalog) SiblingsOfKind(kind ConditionKind) []Definition {
	var out []Definition
	for _, d := range c.defs {
		if d.Condition.Type == kind {
			out = append(out, d)
		}
	}
	return out
}
