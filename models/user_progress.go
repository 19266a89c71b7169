package models

import (
	"time"
)

// ProgressKeyPrefix addresses a user's progress document in the key-value store.
const ProgressKeyPrefix = "userProgress_"

// ProgressKey returns the storage key for a user's progress document.
func ProgressKey(userID string) string {
	return ProgressKeyPrefix + userID
}

// ProgressRecord is the per-user gamification state, persisted as a single JSON document.
type ProgressRecord struct {
	UserID string `json:"userId"`

	// Core progression. Level, XP and XPToNextLevel are derived from TotalXP.
	Level         int   `json:"level"`
	XP            int64 `json:"xp"`
	TotalXP       int64 `json:"totalXP"`
	XPToNextLevel int64 `json:"xpToNextLevel"`

	TokenBalance int64 `json:"tokenBalance"`

	CoursesCompleted []string                       `json:"coursesCompleted"`
	CourseProgress   map[string]*CourseProgressEntry `json:"courseProgress"`

	StreakDays   int       `json:"streakDays"`
	LastActivity time.Time `json:"lastActivity"`

	Achievements []UnlockedAchievement `json:"achievements"`

	// Token ledger, newest last, capped at MaxLedgerEntries.
	Transactions []TokenTransaction `json:"transactions"`
	Inventory    map[string]int     `json:"inventory"`

	// Version is bumped on every persisted write (optimistic concurrency).
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CourseProgressEntry tracks a single course. Progress only moves forward and Completed is terminal.
type CourseProgressEntry struct {
	Progress         int        `json:"progress"`
	LessonsCompleted int        `json:"lessonsCompleted"`
	TotalLessons     int        `json:"totalLessons"`
	LastAccessed     time.Time  `json:"lastAccessed"`
	XPEarned         int64      `json:"xpEarned"`
	Completed        bool       `json:"completed"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

// CourseState is the lifecycle stage of a course entry.
type CourseState string

const (
	CourseNotStarted CourseState = "not_started"
	CourseInProgress CourseState = "in_progress"
	CourseCompleted  CourseState = "completed"
)

func (e *CourseProgressEntry) State() CourseState {
	switch {
	case e == nil || e.Progress <= 0:
		return CourseNotStarted
	case e.Completed:
		return CourseCompleted
	default:
		return CourseInProgress
	}
}

// NewProgressRecord builds the default record for a first session.
func NewProgressRecord(userID string, startingTokens int64, now time.Time) *ProgressRecord {
	return &ProgressRecord{
		UserID:           userID,
		Level:            1,
		TokenBalance:     startingTokens,
		CoursesCompleted: []string{},
		CourseProgress:   map[string]*CourseProgressEntry{},
		Achievements:     []UnlockedAchievement{},
		Transactions:     []TokenTransaction{},
		Inventory:        map[string]int{},
		LastActivity:     now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// RecomputeLevel derives Level, XP and XPToNextLevel from TotalXP.
// level = floor(totalXP / threshold) + 1
func (p *ProgressRecord) RecomputeLevel(levelThreshold int64) {
	if levelThreshold <= 0 {
		levelThreshold = 1
	}
	p.Level = int(p.TotalXP/levelThreshold) + 1
	p.XP = p.TotalXP % levelThreshold
	p.XPToNextLevel = int64(p.Level)*levelThreshold - p.TotalXP
}

// HasAchievement reports whether the achievement id is already unlocked.
func (p *ProgressRecord) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// HasCompletedCourse reports whether courseID is in CoursesCompleted.
func (p *ProgressRecord) HasCompletedCourse(courseID string) bool {
	for _, c := range p.CoursesCompleted {
		if c == courseID {
			return true
		}
	}
	return false
}

// Normalize fills nil collections after decoding older documents and drops null course entries.
func (p *ProgressRecord) Normalize() {
	if p.CoursesCompleted == nil {
		p.CoursesCompleted = []string{}
	}
	if p.CourseProgress == nil {
		p.CourseProgress = map[string]*CourseProgressEntry{}
	}
	for id, e := range p.CourseProgress {
		if e == nil {
			delete(p.CourseProgress, id)
		}
	}
	if p.Achievements == nil {
		p.Achievements = []UnlockedAchievement{}
	}
	if p.Transactions == nil {
		p.Transactions = []TokenTransaction{}
	}
	if p.Inventory == nil {
		p.Inventory = map[string]int{}
	}
}

// Clone returns a deep copy so callers never share the engine's working copy.
func (p *ProgressRecord) Clone() *ProgressRecord {
	if p == nil {
		return nil
	}
	out := *p
	out.CoursesCompleted = append([]string(nil), p.CoursesCompleted...)
	out.Achievements = append([]UnlockedAchievement(nil), p.Achievements...)
	out.Transactions = append([]TokenTransaction(nil), p.Transactions...)
	out.CourseProgress = make(map[string]*CourseProgressEntry, len(p.CourseProgress))
	for id, e := range p.CourseProgress {
		if e == nil {
			continue
		}
		entry := *e
		if e.CompletedAt != nil {
			t := *e.CompletedAt
			entry.CompletedAt = &t
		}
		out.CourseProgress[id] = &entry
	}
	out.Inventory = make(map[string]int, len(p.Inventory))
	for id, n := range p.Inventory {
		out.Inventory[id] = n
	}
	out.Normalize()
	return &out
}
