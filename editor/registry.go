package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"dentalscreen-api/utils"

	"github.com/bsm/redislock"
)

var (
	ErrSubmissionLocked = errors.New("submission already has an active editor session")
	ErrSessionNotFound  = errors.New("editor session not found")
)

const lockTTL = 2 * time.Minute

// Registry owns the live editor sessions. One session per submission at
// a time: a redis lock keyed on the submission ID enforces the
// single-writer model across instances. With a nil locker (tests,
// single-node dev) the in-memory table alone enforces it.
type Registry struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	bySubmission map[string]string
	locks        map[string]*redislock.Lock
	lockerRedis  *redislock.Client
}

func NewRegistry(lockerRedis *redislock.Client) *Registry {
	return &Registry{
		sessions:     make(map[string]*Session),
		bySubmission: make(map[string]string),
		locks:        make(map[string]*redislock.Lock),
		lockerRedis:  lockerRedis,
	}
}

func lockKey(submissionID string) string {
	return "editor:" + submissionID
}

// Open creates a session for a submission, taking the submission lock.
func (reg *Registry) Open(submissionID, ownerID string) (*Session, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, busy := reg.bySubmission[submissionID]; busy {
		return nil, ErrSubmissionLocked
	}

	if reg.lockerRedis != nil {
		lock, err := reg.lockerRedis.Obtain(context.Background(), lockKey(submissionID), lockTTL, nil)
		if err == redislock.ErrNotObtained {
			return nil, ErrSubmissionLocked
		}
		if err != nil {
			return nil, err
		}
		reg.locks[submissionID] = lock
	}

	session := NewSession(submissionID, ownerID)
	reg.sessions[session.ID] = session
	reg.bySubmission[submissionID] = session.ID
	return session, nil
}

// Get hands out a session and refreshes its submission lock.
func (reg *Registry) Get(sessionID string) (*Session, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	session, found := reg.sessions[sessionID]
	if !found {
		return nil, ErrSessionNotFound
	}

	if lock, ok := reg.locks[session.SubmissionID]; ok {
		if err := lock.Refresh(context.Background(), lockTTL, nil); err != nil {
			utils.LogError(err)
		}
	}
	return session, nil
}

// Close discards a session and releases its lock. Unsaved drafts are
// gone after this.
func (reg *Registry) Close(sessionID string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	session, found := reg.sessions[sessionID]
	if !found {
		return ErrSessionNotFound
	}

	delete(reg.sessions, sessionID)
	delete(reg.bySubmission, session.SubmissionID)

	if lock, ok := reg.locks[session.SubmissionID]; ok {
		if err := lock.Release(context.Background()); err != nil && err != redislock.ErrLockNotHeld {
			utils.LogError(err)
		}
		delete(reg.locks, session.SubmissionID)
	}
	return nil
}

// EvictStale drops sessions idle past the cutoff, releasing their
// locks. Run periodically from main.
func (reg *Registry) EvictStale(idleCutoff time.Duration) int {
	reg.mu.Lock()
	stale := make([]string, 0)
	now := time.Now().UnixNano() / int64(time.Millisecond)
	for id, session := range reg.sessions {
		if now-session.LastActive > idleCutoff.Milliseconds() {
			stale = append(stale, id)
		}
	}
	reg.mu.Unlock()

	for _, id := range stale {
		if err := reg.Close(id); err == nil {
			utils.LogInfo("evicted stale editor session %s", id)
		}
	}
	return len(stale)
}
