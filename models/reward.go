package models

import (
	"time"
)

// ItemEffect is what a marketplace item does once bought.
type ItemEffect string

const (
	EffectXPBoost          ItemEffect = "xp_boost"
	EffectStreakFreeze     ItemEffect = "streak_freeze"
	EffectHintPack         ItemEffect = "hint_pack"
	EffectCosmetic         ItemEffect = "cosmetic"
	EffectCertificateFrame ItemEffect = "certificate_frame"
)

// Describe returns the user-facing description of the effect.
func (e ItemEffect) Describe() string {
	switch e {
	case EffectXPBoost:
		return "XP boost"
	case EffectStreakFreeze:
		return "streak freeze"
	case EffectHintPack:
		return "hint pack"
	case EffectCosmetic:
		return "profile cosmetic"
	case EffectCertificateFrame:
		return "certificate frame"
	}
	return "item"
}

// MarketplaceItem is a static catalog entry bought with BLOCK tokens.
type MarketplaceItem struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Emoji  string     `json:"emoji"`
	Cost   int64      `json:"cost"`
	Effect ItemEffect `json:"effect"`
}

var DefaultMarketplace = []MarketplaceItem{
	{ID: "xp_boost_2x", Name: "Double XP (1 hour)", Emoji: "⚡", Cost: 150, Effect: EffectXPBoost},
	{ID: "streak_freeze", Name: "Streak Freeze", Emoji: "🧊", Cost: 100, Effect: EffectStreakFreeze},
	{ID: "hint_pack", Name: "Hint Pack (5 hints)", Emoji: "💡", Cost: 75, Effect: EffectHintPack},
	{ID: "avatar_frame_gold", Name: "Gold Avatar Frame", Emoji: "🖼️", Cost: 300, Effect: EffectCosmetic},
	{ID: "certificate_frame", Name: "Premium Certificate Frame", Emoji: "📜", Cost: 500, Effect: EffectCertificateFrame},
}

// FindMarketplaceItem looks an item up in the catalog.
func FindMarketplaceItem(catalog []MarketplaceItem, id string) (MarketplaceItem, bool) {
	for _, item := range catalog {
		if item.ID == id {
			return item, true
		}
	}
	return MarketplaceItem{}, false
}

// TransactionKind distinguishes ledger credits from debits.
type TransactionKind string

const (
	TransactionCredit TransactionKind = "credit"
	TransactionDebit  TransactionKind = "debit"
)

// MaxLedgerEntries caps the ledger kept inside the progress document.
const MaxLedgerEntries = 100

// TokenTransaction is one balance change in the local token ledger.
type TokenTransaction struct {
	ID           string          `json:"id"`
	Kind         TransactionKind `json:"kind"`
	Amount       int64           `json:"amount"` // signed: debits are negative
	Reason       string          `json:"reason"`
	BalanceAfter int64           `json:"balanceAfter"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// NotificationKind classifies toast events.
type NotificationKind string

const (
	NotifyXPGained          NotificationKind = "xp_gained"
	NotifyLevelUp           NotificationKind = "level_up"
	NotifyTokensGranted     NotificationKind = "tokens_granted"
	NotifyTokensSpent       NotificationKind = "tokens_spent"
	NotifyPurchaseFailed    NotificationKind = "purchase_failed"
	NotifyAchievementUnlock NotificationKind = "achievement_unlocked"
	NotifyCourseCompleted   NotificationKind = "course_completed"
	NotifyPerfectScore      NotificationKind = "perfect_score"
)

// Notification is a toast payload with optional structured detail.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Amount    int64            `json:"amount,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}
