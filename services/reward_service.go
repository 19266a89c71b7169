// services/reward_service.go
package services

import (
	"fmt"
	"time"

	"blockademia-progress/models"

	"github.com/google/uuid"
)

// mutation applies one engine operation to a working copy of a record. It performs no I/O.
// Side effects are collected and dispatched by the service once the record is persisted.
type mutation struct {
	rec     *models.ProgressRecord
	now     time.Time
	economy Economy
	catalog []models.AchievementDefinition

	dirty   bool
	effects effects
}

type effects struct {
	notifications []models.Notification
	walletSyncs   []WalletTransfer
	certificates  []Certificate

	xpGranted      int64
	levelUps       int64
	tokensCredited int64
	tokensSpent    int64
	spendsRejected int
	unlocked       []string
}

type xpGrant struct {
	amount int64
	source string
}

func newMutation(rec *models.ProgressRecord, now time.Time, economy Economy, catalog []models.AchievementDefinition) *mutation {
	return &mutation{rec: rec, now: now, economy: economy, catalog: catalog}
}

func (m *mutation) notify(kind models.NotificationKind, title, msg string, amount int64, reason string) {
	m.effects.notifications = append(m.effects.notifications, models.Notification{
		Kind:      kind,
		Title:     title,
		Message:   msg,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: m.now,
	})
}

// grantXP adds XP and drains the resulting reward chain.
func (m *mutation) grantXP(amount int64, source string) {
	if amount <= 0 {
		return
	}
	m.runXPQueue([]xpGrant{{amount: amount, source: source}})
}

// runXPQueue processes XP grants in FIFO order. Each grant may level the user up and unlock
// achievements, whose XP rewards are appended to the queue. Every unlock removes one definition
// from a finite catalog for good, so the queue holds at most len(catalog) follow-up grants.
func (m *mutation) runXPQueue(queue []xpGrant) {
	for len(queue) > 0 {
		g := queue[0]
		queue = queue[1:]
		if g.amount <= 0 {
			continue
		}

		oldLevel := m.rec.Level
		m.rec.TotalXP += g.amount
		m.rec.RecomputeLevel(m.economy.LevelThreshold)
		m.rec.LastActivity = m.now
		m.dirty = true
		m.effects.xpGranted += g.amount

		if gained := m.rec.Level - oldLevel; gained > 0 {
			tokens := int64(gained) * m.economy.TokensPerLevel
			m.credit(tokens, fmt.Sprintf("level_up_%d", m.rec.Level))
			m.effects.levelUps += int64(gained)
			m.notify(models.NotifyLevelUp, "Level up!",
				printer.Sprintf("You reached level %d and earned %d BLOCK", m.rec.Level, tokens),
				tokens, g.source)
		}

		m.notify(models.NotifyXPGained, "XP earned",
			printer.Sprintf("+%d XP from %s (total %d XP)", g.amount, g.source, m.rec.TotalXP),
			g.amount, g.source)

		queue = append(queue, m.unlockAchievements()...)
	}
}

// credit adds tokens to the local balance and ledger. It is the only place the balance grows.
func (m *mutation) credit(amount int64, reason string) models.TokenTransaction {
	m.rec.TokenBalance += amount
	m.dirty = true
	m.effects.tokensCredited += amount
	return m.record(models.TransactionCredit, amount, reason)
}

func (m *mutation) record(kind models.TransactionKind, amount int64, reason string) models.TokenTransaction {
	tx := models.TokenTransaction{
		ID:           uuid.NewString(),
		Kind:         kind,
		Amount:       amount,
		Reason:       reason,
		BalanceAfter: m.rec.TokenBalance,
		CreatedAt:    m.now,
	}
	m.rec.Transactions = append(m.rec.Transactions, tx)
	if over := len(m.rec.Transactions) - models.MaxLedgerEntries; over > 0 {
		m.rec.Transactions = append([]models.TokenTransaction(nil), m.rec.Transactions[over:]...)
	}
	return tx
}

// grantTokens credits locally and asks for an opportunistic wallet sync keyed by the ledger entry.
func (m *mutation) grantTokens(amount int64, reason string) {
	if amount <= 0 {
		return
	}
	tx := m.credit(amount, reason)
	m.notify(models.NotifyTokensGranted, "Tokens earned",
		printer.Sprintf("+%d BLOCK for %s (balance %d)", amount, reason, m.rec.TokenBalance),
		amount, reason)
	m.effects.walletSyncs = append(m.effects.walletSyncs, WalletTransfer{
		UserID:         m.rec.UserID,
		Amount:         amount,
		Reason:         reason,
		IdempotencyKey: tx.ID,
	})
}

// spendTokens refuses, without touching the record, when the balance cannot cover amount.
func (m *mutation) spendTokens(amount int64, itemID string) bool {
	if amount > m.rec.TokenBalance {
		m.effects.spendsRejected++
		m.notify(models.NotifyPurchaseFailed, "Not enough tokens",
			printer.Sprintf("%s costs %d BLOCK but your balance is %d", itemID, amount, m.rec.TokenBalance),
			amount, itemID)
		return false
	}
	m.rec.TokenBalance -= amount
	m.dirty = true
	m.effects.tokensSpent += amount
	m.record(models.TransactionDebit, -amount, itemID)
	m.notify(models.NotifyTokensSpent, "Purchase complete",
		printer.Sprintf("Spent %d BLOCK on %s (balance %d)", amount, itemID, m.rec.TokenBalance),
		amount, itemID)
	return true
}

func (m *mutation) courseEntry(courseID string) *models.CourseProgressEntry {
	entry, ok := m.rec.CourseProgress[courseID]
	if !ok {
		entry = &models.CourseProgressEntry{
			TotalLessons: m.economy.DefaultTotalLessons,
			LastAccessed: m.now,
		}
		m.rec.CourseProgress[courseID] = entry
		m.dirty = true
	}
	return entry
}

// updateCourseProgress moves a course forward. Cumulative course XP is always
// courseXPAt(progress), so XP from one course never exceeds the XPPerCourse budget.
func (m *mutation) updateCourseProgress(courseID string, newProgress int) {
	entry := m.courseEntry(courseID)
	entry.LastAccessed = m.now
	m.dirty = true
	if entry.Completed {
		return
	}

	target := clampPercent(newProgress)
	if target <= entry.Progress {
		return
	}

	gained := m.economy.courseXPAt(target) - m.economy.courseXPAt(entry.Progress)
	entry.Progress = target
	entry.LessonsCompleted = target * entry.TotalLessons / 100
	entry.XPEarned += gained

	m.grantXP(gained, "course "+courseID)

	if target == 100 {
		m.completeCourse(courseID, courseID)
	}
}

// completeCourse is a no-op for a course that is already completed.
func (m *mutation) completeCourse(courseID, courseName string) bool {
	entry := m.courseEntry(courseID)
	if entry.Completed {
		return false
	}

	completedAt := m.now
	entry.Progress = 100
	entry.LessonsCompleted = entry.TotalLessons
	entry.Completed = true
	entry.CompletedAt = &completedAt
	entry.LastAccessed = m.now
	if !m.rec.HasCompletedCourse(courseID) {
		m.rec.CoursesCompleted = append(m.rec.CoursesCompleted, courseID)
	}
	m.dirty = true

	m.notify(models.NotifyCourseCompleted, "Course completed",
		fmt.Sprintf("You completed %s", courseName), 0, courseID)

	reason := "course completion: " + courseName
	m.grantXP(m.economy.CourseCompletionXP, reason)
	m.grantTokens(m.economy.CourseCompletionTokens, reason)

	final := *entry
	m.effects.certificates = append(m.effects.certificates, Certificate{
		UserID:     m.rec.UserID,
		CourseID:   courseID,
		CourseName: courseName,
		Entry:      final,
	})

	m.evaluateAchievements()
	return true
}

func (m *mutation) completeLesson(lessonID string, score int) {
	score = clampPercent(score)
	m.grantXP(m.economy.lessonXP(score), "lesson "+lessonID)
	if tokens := m.economy.lessonTokens(score); tokens > 0 {
		m.grantTokens(tokens, printer.Sprintf("lesson %s score %d%%", lessonID, score))
	}
}

func (m *mutation) awardProjectBonus(projectType string, d Difficulty, scorePercent int) {
	scorePercent = clampPercent(scorePercent)
	bonusXP := m.economy.projectBonusXP(d, scorePercent)
	bonusTokens := bonusXP / 2
	reason := fmt.Sprintf("%s project (%s)", projectType, d)

	m.grantXP(bonusXP, reason)
	m.grantTokens(bonusTokens, reason)

	if scorePercent == 100 && m.economy.PerfectScoreTokens > 0 {
		m.notify(models.NotifyPerfectScore, "Perfect score!",
			printer.Sprintf("Flawless %s project: +%d BLOCK bonus", projectType, m.economy.PerfectScoreTokens),
			m.economy.PerfectScoreTokens, reason)
		m.grantTokens(m.economy.PerfectScoreTokens, "perfect score: "+reason)
	}
}
