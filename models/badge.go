package models

import (
	"time"
)

// AchievementKind selects which progress field an unlock predicate compares against.
type AchievementKind string

const (
	AchievementTotalXP          AchievementKind = "total_xp"
	AchievementCoursesCompleted AchievementKind = "courses_completed"
	AchievementLevel            AchievementKind = "level"
	AchievementStreakDays       AchievementKind = "streak_days"
)

// AchievementDefinition: static catalog entry, unlocked once when its threshold is met.
type AchievementDefinition struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	Kind        AchievementKind `json:"kind"`
	Threshold   int64           `json:"threshold"`
	XPReward    int64           `json:"xpReward"`
	TokenReward int64           `json:"tokenReward"`
}

// Satisfied evaluates the unlock predicate against the record.
func (d AchievementDefinition) Satisfied(p *ProgressRecord) bool {
	switch d.Kind {
	case AchievementTotalXP:
		return p.TotalXP >= d.Threshold
	case AchievementCoursesCompleted:
		return int64(len(p.CoursesCompleted)) >= d.Threshold
	case AchievementLevel:
		return int64(p.Level) >= d.Threshold
	case AchievementStreakDays:
		return int64(p.StreakDays) >= d.Threshold
	}
	return false
}

// UnlockedAchievement is the per-user record of an unlocked definition.
type UnlockedAchievement struct {
	ID          string    `json:"id"`
	UnlockedAt  time.Time `json:"unlockedAt"`
	XPReward    int64     `json:"xpReward"`
	TokenReward int64     `json:"tokenReward"`
}

// AchievementStatus joins a definition with the user's unlock state.
type AchievementStatus struct {
	AchievementDefinition
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}

// DefaultAchievements is the platform catalog.
var DefaultAchievements = []AchievementDefinition{
	{
		ID:          "first_steps",
		Name:        "First Steps",
		Description: "Earned your first XP",
		Icon:        "👣",
		Kind:        AchievementTotalXP,
		Threshold:   1,
		XPReward:    50,
		TokenReward: 10,
	},
	{
		ID:          "course_graduate",
		Name:        "Graduate",
		Description: "Completed your first course",
		Icon:        "🎓",
		Kind:        AchievementCoursesCompleted,
		Threshold:   1,
		XPReward:    100,
		TokenReward: 25,
	},
	{
		ID:          "blockchain_scholar",
		Name:        "Blockchain Scholar",
		Description: "Completed 3 courses",
		Icon:        "📚",
		Kind:        AchievementCoursesCompleted,
		Threshold:   3,
		XPReward:    300,
		TokenReward: 75,
	},
	{
		ID:          "rising_builder",
		Name:        "Rising Builder",
		Description: "Reached level 5",
		Icon:        "🧱",
		Kind:        AchievementLevel,
		Threshold:   5,
		XPReward:    250,
		TokenReward: 50,
	},
	{
		ID:          "chain_master",
		Name:        "Chain Master",
		Description: "Reached level 10",
		Icon:        "⛓️",
		Kind:        AchievementLevel,
		Threshold:   10,
		XPReward:    500,
		TokenReward: 100,
	},
	{
		ID:          "week_streak",
		Name:        "On a Roll",
		Description: "Learned 7 days in a row",
		Icon:        "🔥",
		Kind:        AchievementStreakDays,
		Threshold:   7,
		XPReward:    150,
		TokenReward: 30,
	},
	{
		ID:          "month_streak",
		Name:        "Unstoppable",
		Description: "Learned 30 days in a row",
		Icon:        "🚀",
		Kind:        AchievementStreakDays,
		Threshold:   30,
		XPReward:    600,
		TokenReward: 150,
	},
}
