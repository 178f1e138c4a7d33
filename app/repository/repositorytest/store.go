// Package repositorytest provides an in-memory Store double for tests.
// It is test support only: production code always runs on the GORM store.
package repositorytest

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/musevip/musebot/app/models"
	"github.com/musevip/musebot/app/repository"
)

// MemStore implements repository.Store on maps. Transaction serializes
// callers with a mutex, which mirrors the row-locking guarantee the
// production store gives per chat.
type MemStore struct {
	txMu sync.Mutex

	mu         sync.Mutex
	users      map[int64]*models.VIPUser
	deliveries []models.GalleryDelivery
	events     map[string]*models.PaymentEvent
	nextID     uint
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:  make(map[int64]*models.VIPUser),
		events: make(map[string]*models.PaymentEvent),
	}
}

func (s *MemStore) VIPUsers() repository.VIPUserRepository { return &memUsers{s: s} }

func (s *MemStore) Deliveries() repository.DeliveryRepository { return &memDeliveries{s: s} }

func (s *MemStore) PaymentEvents() repository.PaymentEventRepository { return &memEvents{s: s} }

// Transaction serializes callers and restores the pre-transaction state
// when fn fails, matching the commit/rollback behavior of the GORM store.
func (s *MemStore) Transaction(fn func(repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.restoreLocked(snapshot)
		s.mu.Unlock()
		return err
	}
	return nil
}

type memSnapshot struct {
	users      map[int64]*models.VIPUser
	deliveries []models.GalleryDelivery
	events     map[string]*models.PaymentEvent
	nextID     uint
}

func (s *MemStore) snapshotLocked() memSnapshot {
	snap := memSnapshot{
		users:      make(map[int64]*models.VIPUser, len(s.users)),
		deliveries: append([]models.GalleryDelivery(nil), s.deliveries...),
		events:     make(map[string]*models.PaymentEvent, len(s.events)),
		nextID:     s.nextID,
	}
	for chatID, user := range s.users {
		clone := *user
		snap.users[chatID] = &clone
	}
	for key, event := range s.events {
		clone := *event
		snap.events[key] = &clone
	}
	return snap
}

func (s *MemStore) restoreLocked(snap memSnapshot) {
	s.users = snap.users
	s.deliveries = snap.deliveries
	s.events = snap.events
	s.nextID = snap.nextID
}

func (s *MemStore) nextRowID() uint {
	s.nextID++
	return s.nextID
}

type memUsers struct {
	s *MemStore
}

func (r *memUsers) GetByChatID(chatID int64) (*models.VIPUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[chatID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *memUsers) GetByChatIDForUpdate(chatID int64) (*models.VIPUser, error) {
	return r.GetByChatID(chatID)
}

func (r *memUsers) Upsert(user *models.VIPUser) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.users[user.ChatID]; ok {
		user.ID = existing.ID
	} else {
		user.ID = r.s.nextRowID()
	}
	clone := *user
	r.s.users[user.ChatID] = &clone
	return nil
}

func (r *memUsers) SetLastSentAt(chatID int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[chatID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t := at
	user.LastSentAt = &t
	return nil
}

func (r *memUsers) ListActive(now time.Time) ([]models.VIPUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var active []models.VIPUser
	for _, user := range r.s.users {
		if now.Before(user.VIPUntil) {
			active = append(active, *user)
		}
	}
	return active, nil
}

func (r *memUsers) CountActive(now time.Time) (int64, error) {
	active, _ := r.ListActive(now)
	return int64(len(active)), nil
}

func (r *memUsers) CountExpired(now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, user := range r.s.users {
		if !now.Before(user.VIPUntil) {
			count++
		}
	}
	return count, nil
}

func (r *memUsers) PurgeExpiredBefore(cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var purged int64
	for chatID, user := range r.s.users {
		if user.VIPUntil.Before(cutoff) {
			delete(r.s.users, chatID)
			purged++
		}
	}
	return purged, nil
}

type memDeliveries struct {
	s *MemStore
}

func (r *memDeliveries) Record(delivery *models.GalleryDelivery) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.deliveries {
		if existing.ChatID == delivery.ChatID && existing.Fingerprint == delivery.Fingerprint {
			return fmt.Errorf("duplicate delivery for chat %d", delivery.ChatID)
		}
	}
	delivery.ID = r.s.nextRowID()
	r.s.deliveries = append(r.s.deliveries, *delivery)
	return nil
}

func (r *memDeliveries) FingerprintsByChatID(chatID int64) (map[string]struct{}, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := make(map[string]struct{})
	for _, d := range r.s.deliveries {
		if d.ChatID == chatID {
			seen[d.Fingerprint] = struct{}{}
		}
	}
	return seen, nil
}

func (r *memDeliveries) Count() (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.deliveries)), nil
}

func (r *memDeliveries) CountByChatID(chatID int64) (int64, error) {
	seen, _ := r.FingerprintsByChatID(chatID)
	return int64(len(seen)), nil
}

type memEvents struct {
	s *MemStore
}

func (r *memEvents) CreateIfNotExists(event *models.PaymentEvent) (bool, *models.PaymentEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := event.Provider + "|" + event.PaymentID
	if stored, ok := r.s.events[key]; ok {
		clone := *stored
		return false, &clone, nil
	}
	event.ID = r.s.nextRowID()
	clone := *event
	r.s.events[key] = &clone
	result := clone
	return true, &result, nil
}

func (r *memEvents) MarkProcessed(id uint, processingError string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, event := range r.s.events {
		if event.ID == id {
			now := time.Now()
			event.ProcessedAt = &now
			event.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}
