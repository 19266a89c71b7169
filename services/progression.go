package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"blockademia-progress/models"

	"github.com/google/uuid"
)

var (
	ErrInvalidUser         = errors.New("user id is required")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidCourse       = errors.New("course id is required")
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrUnknownItem         = errors.New("unknown marketplace item")
)

// maxApplyAttempts bounds the reload-and-reapply loop on version conflicts.
const maxApplyAttempts = 3

type session struct {
	rec     *models.ProgressRecord
	touched time.Time
}

// ProgressionService owns every user's progress record. Wallet, Outbox and Certificates are optional.
type ProgressionService struct {
	Store        ProgressStore
	Notifier     Notifier
	Wallet       WalletClient
	Outbox       WalletOutbox
	Certificates CertificateIssuer

	Economy     Economy
	Catalog     []models.AchievementDefinition
	Marketplace []models.MarketplaceItem

	Now               func() time.Time
	WalletSyncTimeout time.Duration

	locks    *userLocks
	mu       sync.Mutex
	sessions map[string]*session
	wg       sync.WaitGroup
}

func NewProgressionService(store ProgressStore, notifier Notifier, economy Economy) *ProgressionService {
	return &ProgressionService{
		Store:             store,
		Notifier:          notifier,
		Economy:           economy,
		Catalog:           models.DefaultAchievements,
		Marketplace:       models.DefaultMarketplace,
		Now:               time.Now,
		WalletSyncTimeout: 3 * time.Second,
		locks:             newUserLocks(),
		sessions:          make(map[string]*session),
	}
}

func (s *ProgressionService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// ---- sessions ----

// StartSession loads the user's record, creating and persisting a fresh one on first sign-in.
func (s *ProgressionService) StartSession(ctx context.Context, userID string) (*models.ProgressRecord, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	rec, err := s.loadLocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	log.Printf("👋 Session started: %s (level %d, %d BLOCK)", userID, rec.Level, rec.TokenBalance)
	return rec.Clone(), nil
}

// EndSession drops the in-memory copy. The stored document is kept.
func (s *ProgressionService) EndSession(userID string) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	s.forget(userID)
	log.Printf("👋 Session ended: %s", userID)
}

// EvictIdleSessions drops cached records not touched within maxIdle and returns how many were dropped.
func (s *ProgressionService) EvictIdleSessions(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for userID, sess := range s.sessions {
		if sess.touched.Before(cutoff) {
			delete(s.sessions, userID)
			evicted++
		}
	}
	return evicted
}

// Sessions returns the number of cached records.
func (s *ProgressionService) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Wait blocks until in-flight wallet syncs have finished.
func (s *ProgressionService) Wait() {
	s.wg.Wait()
}

func (s *ProgressionService) cached(userID string) *models.ProgressRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	sess.touched = s.now()
	return sess.rec
}

func (s *ProgressionService) cache(userID string, rec *models.ProgressRecord) {
	s.mu.Lock()
	s.sessions[userID] = &session{rec: rec, touched: s.now()}
	s.mu.Unlock()
}

func (s *ProgressionService) forget(userID string) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

// ---- load / persist ----

// loadLocked must be called with the user's lock held.
func (s *ProgressionService) loadLocked(ctx context.Context, userID string) (*models.ProgressRecord, error) {
	if rec := s.cached(userID); rec != nil {
		return rec, nil
	}

	doc, err := s.Store.Load(ctx, models.ProgressKey(userID))
	switch {
	case err == nil:
		rec, err := decodeProgress(doc)
		if err != nil {
			return nil, fmt.Errorf("load progress for %s: %w", userID, err)
		}
		if rec.UserID == "" {
			rec.UserID = userID
		}
		s.cache(userID, rec)
		return rec, nil
	case errors.Is(err, ErrProgressNotFound):
		return s.createLocked(ctx, userID)
	default:
		// A fresh record here would overwrite stored progress on the next save.
		return nil, fmt.Errorf("load progress for %s: %w", userID, err)
	}
}

func (s *ProgressionService) createLocked(ctx context.Context, userID string) (*models.ProgressRecord, error) {
	now := s.now()
	rec := models.NewProgressRecord(userID, s.Economy.StartingTokens, now)
	rec.RecomputeLevel(s.Economy.LevelThreshold)
	if s.Economy.StartingTokens > 0 {
		rec.Transactions = append(rec.Transactions, models.TokenTransaction{
			ID:           uuid.NewString(),
			Kind:         models.TransactionCredit,
			Amount:       s.Economy.StartingTokens,
			Reason:       "welcome_bonus",
			BalanceAfter: rec.TokenBalance,
			CreatedAt:    now,
		})
	}
	rec.Version = 1

	err := s.persist(ctx, rec)
	switch {
	case err == nil:
		log.Printf("🎮 New progress record: %s (%d BLOCK starting balance)", userID, rec.TokenBalance)
	case errors.Is(err, ErrVersionConflict):
		// Another replica created it first.
		VersionConflicts.Inc()
		doc, err := s.Store.Load(ctx, models.ProgressKey(userID))
		if err != nil {
			return nil, fmt.Errorf("reload progress for %s: %w", userID, err)
		}
		if rec, err = decodeProgress(doc); err != nil {
			return nil, fmt.Errorf("reload progress for %s: %w", userID, err)
		}
	default:
		PersistFailures.Inc()
		log.Printf("❌ Failed to persist new progress record for %s: %v", userID, err)
		rec.Version = 0
	}
	s.cache(userID, rec)
	return rec, nil
}

func (s *ProgressionService) persist(ctx context.Context, rec *models.ProgressRecord) error {
	doc, err := encodeProgress(rec)
	if err != nil {
		return err
	}
	return s.Store.Save(ctx, models.ProgressKey(rec.UserID), rec.Version, doc)
}

// apply runs fn against a working copy of the user's record, persists the result and then
// dispatches the collected side effects. On a version conflict the cached copy is dropped and fn
// is replayed against the freshly loaded document.
func (s *ProgressionService) apply(ctx context.Context, userID string, fn func(m *mutation)) (*models.ProgressRecord, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		rec, err := s.loadLocked(ctx, userID)
		if err != nil {
			return nil, err
		}

		work := rec.Clone()
		m := newMutation(work, s.now(), s.Economy, s.Catalog)
		fn(m)

		if !m.dirty {
			s.dispatch(ctx, userID, m.effects)
			return work, nil
		}

		work.Version = rec.Version + 1
		work.UpdatedAt = m.now
		err = s.persist(ctx, work)
		if errors.Is(err, ErrVersionConflict) {
			VersionConflicts.Inc()
			s.forget(userID)
			if attempt < maxApplyAttempts {
				log.Printf("🔁 Version conflict for %s at v%d, reloading (attempt %d)", userID, work.Version, attempt)
				continue
			}
			// The store is ahead of every copy we built; nothing was committed and nothing is dispatched.
			log.Printf("❌ Giving up on %s after %d version conflicts", userID, attempt)
			return nil, fmt.Errorf("save progress for %s: %w", userID, err)
		}
		if err != nil {
			// Keep the change in memory; the next successful write carries it.
			PersistFailures.Inc()
			log.Printf("❌ Failed to persist progress for %s: %v", userID, err)
			work.Version = rec.Version
		}

		s.cache(userID, work)
		s.dispatch(ctx, userID, m.effects)
		return work.Clone(), nil
	}
}

// dispatch runs after the record is committed. Collaborator failures are logged, never returned.
func (s *ProgressionService) dispatch(ctx context.Context, userID string, eff effects) {
	XPGranted.Add(float64(eff.xpGranted))
	LevelUps.Add(float64(eff.levelUps))
	TokensCredited.Add(float64(eff.tokensCredited))
	TokensSpent.Add(float64(eff.tokensSpent))
	SpendsRejected.Add(float64(eff.spendsRejected))
	logUnlocks(userID, eff.unlocked)

	if s.Notifier != nil {
		for _, n := range eff.notifications {
			s.Notifier.Notify(ctx, userID, n)
		}
	}

	for _, cert := range eff.certificates {
		s.issueCertificate(ctx, cert)
	}

	for _, t := range eff.walletSyncs {
		s.syncWallet(t)
	}
}

func (s *ProgressionService) issueCertificate(ctx context.Context, cert Certificate) {
	if s.Certificates == nil {
		CertificatesIssued.WithLabelValues("skipped").Inc()
		return
	}
	if err := s.Certificates.Issue(ctx, cert); err != nil {
		CertificatesIssued.WithLabelValues("failed").Inc()
		log.Printf("❌ Certificate for %s/%s failed: %v", cert.UserID, cert.CourseID, err)
		return
	}
	CertificatesIssued.WithLabelValues("issued").Inc()
}

// syncWallet mirrors a local credit to the external wallet in the background. Transfers the
// wallet does not acknowledge are queued in the outbox under the same idempotency key.
func (s *ProgressionService) syncWallet(t WalletTransfer) {
	if s.Wallet == nil {
		WalletSyncs.WithLabelValues("skipped").Inc()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.WalletSyncTimeout)
		defer cancel()

		if !s.Wallet.HasWallet(ctx, t.UserID) {
			WalletSyncs.WithLabelValues("no_wallet").Inc()
			return
		}

		ok, err := s.Wallet.SendTokens(ctx, t)
		if err == nil && ok {
			WalletSyncs.WithLabelValues("delivered").Inc()
			log.Printf("💸 Wallet synced: %s +%d BLOCK (%s)", t.UserID, t.Amount, t.Reason)
			return
		}
		if err == nil {
			err = errWalletRefused
		}
		WalletSyncs.WithLabelValues("failed").Inc()
		log.Printf("⚠️ Wallet sync failed for %s (+%d BLOCK): %v", t.UserID, t.Amount, err)

		if s.Outbox == nil {
			return
		}
		qctx, qcancel := context.WithTimeout(context.Background(), s.WalletSyncTimeout)
		defer qcancel()
		if qerr := s.Outbox.Enqueue(qctx, t, err); qerr != nil {
			log.Printf("❌ Failed to queue wallet transfer %s: %v", t.IdempotencyKey, qerr)
			return
		}
		WalletSyncs.WithLabelValues("queued").Inc()
	}()
}

// ---- operations ----

// GetProgress returns a snapshot of the user's record.
func (s *ProgressionService) GetProgress(ctx context.Context, userID string) (*models.ProgressRecord, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}
	unlock := s.locks.Lock(userID)
	defer unlock()
	rec, err := s.loadLocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// GrantXP adds XP, then settles level-ups and any achievements the new totals unlock.
func (s *ProgressionService) GrantXP(ctx context.Context, userID string, amount int64, source string) (*models.ProgressRecord, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.apply(ctx, userID, func(m *mutation) {
		m.grantXP(amount, source)
	})
}

// GrantTokens credits the local balance and mirrors the credit to the external wallet.
func (s *ProgressionService) GrantTokens(ctx context.Context, userID string, amount int64, reason string) (*models.ProgressRecord, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.apply(ctx, userID, func(m *mutation) {
		m.grantTokens(amount, reason)
	})
}

// SpendTokens debits the balance. It returns false with ErrInsufficientBalance, and leaves the
// record untouched, when amount exceeds the balance.
func (s *ProgressionService) SpendTokens(ctx context.Context, userID string, amount int64, itemID string) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	var spent bool
	_, err := s.apply(ctx, userID, func(m *mutation) {
		spent = m.spendTokens(amount, itemID)
	})
	if err != nil {
		return false, err
	}
	if !spent {
		return false, ErrInsufficientBalance
	}
	return true, nil
}

// Purchase buys one marketplace item and adds it to the inventory.
func (s *ProgressionService) Purchase(ctx context.Context, userID, itemID string) (*models.ProgressRecord, error) {
	item, ok := models.FindMarketplaceItem(s.Marketplace, itemID)
	if !ok {
		return nil, ErrUnknownItem
	}
	var spent bool
	rec, err := s.apply(ctx, userID, func(m *mutation) {
		if spent = m.spendTokens(item.Cost, item.ID); spent {
			m.rec.Inventory[item.ID]++
		}
	})
	if err != nil {
		return nil, err
	}
	if !spent {
		return rec, ErrInsufficientBalance
	}
	log.Printf("🛒 Purchase: %s bought %s for %d BLOCK", userID, item.ID, item.Cost)
	return rec, nil
}

// UpdateCourseProgress moves a course forward and grants the matching share of course XP.
// Reaching 100 completes the course.
func (s *ProgressionService) UpdateCourseProgress(ctx context.Context, userID, courseID string, progress int) (*models.ProgressRecord, error) {
	if courseID == "" {
		return nil, ErrInvalidCourse
	}
	return s.apply(ctx, userID, func(m *mutation) {
		m.updateCourseProgress(courseID, progress)
	})
}

// CompleteCourse is idempotent: completing a finished course changes nothing.
func (s *ProgressionService) CompleteCourse(ctx context.Context, userID, courseID, courseName string) (*models.ProgressRecord, error) {
	if courseID == "" {
		return nil, ErrInvalidCourse
	}
	if courseName == "" {
		courseName = courseID
	}
	return s.apply(ctx, userID, func(m *mutation) {
		m.completeCourse(courseID, courseName)
	})
}

func (s *ProgressionService) CompleteLesson(ctx context.Context, userID, lessonID string, score int) (*models.ProgressRecord, error) {
	return s.apply(ctx, userID, func(m *mutation) {
		m.completeLesson(lessonID, score)
	})
}

func (s *ProgressionService) AwardProjectBonus(ctx context.Context, userID, projectType string, difficulty Difficulty, scorePercent int) (*models.ProgressRecord, error) {
	d, err := ParseDifficulty(string(difficulty))
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, func(m *mutation) {
		m.awardProjectBonus(projectType, d, scorePercent)
	})
}

// SetStreakDays stores the externally computed streak and unlocks any streak achievements.
func (s *ProgressionService) SetStreakDays(ctx context.Context, userID string, days int) (*models.ProgressRecord, error) {
	if days < 0 {
		return nil, ErrInvalidAmount
	}
	return s.apply(ctx, userID, func(m *mutation) {
		m.rec.StreakDays = days
		m.dirty = true
		m.evaluateAchievements()
	})
}

// Achievements lists the catalog with the user's unlock state.
func (s *ProgressionService) Achievements(ctx context.Context, userID string) ([]models.AchievementStatus, error) {
	rec, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return achievementStatuses(s.Catalog, rec), nil
}

// Transactions returns the token ledger, newest first.
func (s *ProgressionService) Transactions(ctx context.Context, userID string) ([]models.TokenTransaction, error) {
	rec, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.TokenTransaction, 0, len(rec.Transactions))
	for i := len(rec.Transactions) - 1; i >= 0; i-- {
		out = append(out, rec.Transactions[i])
	}
	return out, nil
}
