package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	XPGranted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_xp_granted_total",
			Help: "Total XP granted across all users",
		},
	)
	LevelUps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_level_ups_total",
			Help: "Total levels gained across all users",
		},
	)
	TokensCredited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_tokens_credited_total",
			Help: "Total BLOCK tokens credited to local balances",
		},
	)
	TokensSpent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_tokens_spent_total",
			Help: "Total BLOCK tokens spent",
		},
	)
	SpendsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_spends_rejected_total",
			Help: "Spends refused for insufficient balance",
		},
	)
	AchievementsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_achievements_unlocked_total",
			Help: "Achievements unlocked, by achievement id",
		},
		[]string{"achievement"},
	)
	PersistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_persist_failures_total",
			Help: "Progress document writes that failed and were kept in memory only",
		},
	)
	VersionConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_version_conflicts_total",
			Help: "Writes retried because another writer updated the document first",
		},
	)
	WalletSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_wallet_sync_total",
			Help: "External wallet sync attempts, by result",
		},
		[]string{"result"},
	)
	CertificatesIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_certificates_total",
			Help: "Certificate issue attempts, by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		XPGranted,
		LevelUps,
		TokensCredited,
		TokensSpent,
		SpendsRejected,
		AchievementsUnlocked,
		PersistFailures,
		VersionConflicts,
		WalletSyncs,
		CertificatesIssued,
	)
}
