package audit

import (
	"sync"

	"github.com/oarkflow/xid/wuid"
	"github.com/rs/zerolog/log"

	"github.com/oarkflow/streamguard/pkg/models"
)

// EventStore is the persistence side of DatabaseSink.
type EventStore interface {
	SaveSecurityEvent(event models.SecurityEvent) error
}

const defaultQueueSize = 256

// DatabaseSink persists events from a background goroutine so a slow
// database never delays the request being validated. Events arriving while
// the queue is full are dropped and logged.
type DatabaseSink struct {
	store  EventStore
	queue  chan models.SecurityEvent
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

func NewDatabaseSink(store EventStore, queueSize int) *DatabaseSink {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	s := &DatabaseSink{
		store: store,
		queue: make(chan models.SecurityEvent, queueSize),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *DatabaseSink) LogInjectionAttempt(event models.SecurityEvent) {
	if event.ID == "" {
		event.ID = wuid.New().String()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- event:
	default:
		log.Warn().Str("category", event.Category).Msg("audit queue full, security event dropped")
	}
}

// Close stops accepting events and waits until the queue is flushed.
func (s *DatabaseSink) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
		<-s.done
	})
}

func (s *DatabaseSink) run() {
	defer close(s.done)
	for event := range s.queue {
		if err := s.store.SaveSecurityEvent(event); err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("failed to persist security event")
		}
	}
}
