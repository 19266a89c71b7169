package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDifficulty(t *testing.T) {
	for in, want := range map[string]Difficulty{
		"easy":     DifficultyEasy,
		" Medium ": DifficultyMedium,
		"HARD":     DifficultyHard,
	} {
		got, err := ParseDifficulty(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseDifficulty("legendary")
	assert.ErrorIs(t, err, ErrInvalidDifficulty)
}

func TestCourseXPTelescopes(t *testing.T) {
	e := DefaultEconomy
	steps := []int{0, 7, 13, 33, 50, 51, 99, 100}
	var earned int64
	for i := 1; i < len(steps); i++ {
		earned += e.courseXPAt(steps[i]) - e.courseXPAt(steps[i-1])
		assert.Equal(t, int64(steps[i])*e.XPPerCourse/100, earned)
	}
	assert.Equal(t, e.XPPerCourse, earned)
}

func TestLessonTokenTiersAreExclusive(t *testing.T) {
	e := DefaultEconomy
	assert.Equal(t, e.LessonTierATokens, e.lessonTokens(100))
	assert.Equal(t, e.LessonTierATokens, e.lessonTokens(90))
	assert.Equal(t, e.LessonTierBTokens, e.lessonTokens(89))
	assert.Equal(t, e.LessonTierBTokens, e.lessonTokens(75))
	assert.Zero(t, e.lessonTokens(74))
}

func TestProjectBonusXP(t *testing.T) {
	e := DefaultEconomy
	assert.Equal(t, int64(200), e.projectBonusXP(DifficultyEasy, 100))
	assert.Equal(t, int64(240), e.projectBonusXP(DifficultyMedium, 80))
	assert.Equal(t, int64(400), e.projectBonusXP(DifficultyHard, 100))
	assert.Equal(t, int64(0), e.projectBonusXP(DifficultyHard, 0))
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0, clampPercent(-5))
	assert.Equal(t, 42, clampPercent(42))
	assert.Equal(t, 100, clampPercent(140))
}
