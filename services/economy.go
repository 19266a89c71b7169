package services

import (
	"errors"
	"strings"
)

// Difficulty of a project submission.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var ErrInvalidDifficulty = errors.New("difficulty must be easy, medium or hard")

// ParseDifficulty accepts easy/medium/hard in any case.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", ErrInvalidDifficulty
}

// Economy holds the reward constants (tunable via env, see config.Load).
type Economy struct {
	LevelThreshold int64 `default:"1000"`
	TokensPerLevel int64 `default:"50"`
	StartingTokens int64 `default:"100"`

	XPPerCourse            int64 `default:"500"`
	CourseCompletionXP     int64 `default:"200"`
	CourseCompletionTokens int64 `default:"100"`
	DefaultTotalLessons    int   `default:"10"`

	XPPerLesson       int64 `default:"50"`
	LessonTierATokens int64 `default:"25"` // score >= 90
	LessonTierBTokens int64 `default:"10"` // 75 <= score < 90

	ProjectBaseBonus   int64   `default:"200"`
	EasyMultiplier     float64 `default:"1.0"`
	MediumMultiplier   float64 `default:"1.5"`
	HardMultiplier     float64 `default:"2.0"`
	PerfectScoreTokens int64   `default:"50"`
}

var DefaultEconomy = Economy{
	LevelThreshold: 1000,
	TokensPerLevel: 50,
	StartingTokens: 100,

	XPPerCourse:            500,
	CourseCompletionXP:     200,
	CourseCompletionTokens: 100,
	DefaultTotalLessons:    10,

	XPPerLesson:       50,
	LessonTierATokens: 25,
	LessonTierBTokens: 10,

	ProjectBaseBonus:   200,
	EasyMultiplier:     1.0,
	MediumMultiplier:   1.5,
	HardMultiplier:     2.0,
	PerfectScoreTokens: 50,
}

func (e Economy) multiplier(d Difficulty) float64 {
	switch d {
	case DifficultyEasy:
		return e.EasyMultiplier
	case DifficultyMedium:
		return e.MediumMultiplier
	case DifficultyHard:
		return e.HardMultiplier
	}
	return 0
}

// courseXPAt is the cumulative course XP earned at a given progress percentage.
func (e Economy) courseXPAt(progress int) int64 {
	return int64(progress) * e.XPPerCourse / 100
}

// lessonXP = floor(score/100 × xpPerLesson)
func (e Economy) lessonXP(score int) int64 {
	return int64(score) * e.XPPerLesson / 100
}

// lessonTokens applies the mutually exclusive score tiers, highest first.
func (e Economy) lessonTokens(score int) int64 {
	switch {
	case score >= 90:
		return e.LessonTierATokens
	case score >= 75:
		return e.LessonTierBTokens
	default:
		return 0
	}
}

// projectBonusXP = floor(baseBonus × multiplier × score/100)
func (e Economy) projectBonusXP(d Difficulty, scorePercent int) int64 {
	return int64(float64(e.ProjectBaseBonus) * e.multiplier(d) * float64(scorePercent) / 100)
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
