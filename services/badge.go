package services

import (
	"log"

	"blockademia-progress/models"
)

// unlockAchievements unlocks every catalog entry whose predicate holds and that the user does not
// have yet. Token rewards are credited immediately; XP rewards are returned for the XP queue.
func (m *mutation) unlockAchievements() []xpGrant {
	var pending []xpGrant
	for _, def := range m.catalog {
		if m.rec.HasAchievement(def.ID) || !def.Satisfied(m.rec) {
			continue
		}

		m.rec.Achievements = append(m.rec.Achievements, models.UnlockedAchievement{
			ID:          def.ID,
			UnlockedAt:  m.now,
			XPReward:    def.XPReward,
			TokenReward: def.TokenReward,
		})
		m.dirty = true
		m.effects.unlocked = append(m.effects.unlocked, def.ID)

		if def.TokenReward > 0 {
			m.credit(def.TokenReward, "achievement_"+def.ID)
		}
		m.notify(models.NotifyAchievementUnlock, "Achievement unlocked: "+def.Name,
			printer.Sprintf("%s %s: +%d XP, +%d BLOCK", def.Icon, def.Description, def.XPReward, def.TokenReward),
			def.TokenReward, def.ID)

		if def.XPReward > 0 {
			pending = append(pending, xpGrant{amount: def.XPReward, source: "achievement " + def.Name})
		}
	}
	return pending
}

// evaluateAchievements runs the unlock pass outside of an XP grant (streak updates, course completion).
func (m *mutation) evaluateAchievements() {
	m.runXPQueue(m.unlockAchievements())
}

// achievementStatuses joins the catalog with the user's unlocks, in catalog order.
func achievementStatuses(catalog []models.AchievementDefinition, rec *models.ProgressRecord) []models.AchievementStatus {
	unlocked := make(map[string]models.UnlockedAchievement, len(rec.Achievements))
	for _, a := range rec.Achievements {
		unlocked[a.ID] = a
	}

	out := make([]models.AchievementStatus, 0, len(catalog))
	for _, def := range catalog {
		status := models.AchievementStatus{AchievementDefinition: def}
		if a, ok := unlocked[def.ID]; ok {
			at := a.UnlockedAt
			status.Unlocked = true
			status.UnlockedAt = &at
		}
		out = append(out, status)
	}
	return out
}

func logUnlocks(userID string, ids []string) {
	for _, id := range ids {
		AchievementsUnlocked.WithLabelValues(id).Inc()
		log.Printf("🎖️ Achievement unlocked: %s → %s", id, userID)
	}
}
