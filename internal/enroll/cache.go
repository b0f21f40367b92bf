package enroll

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoCache remembers which user owns a course enrollment so repeated
// resolution calls within one service instance skip the detail fetch.
// A failed lookup is cached as the empty string: known-missing is a valid
// cached value and must not trigger another remote call.
type MemoCache struct {
	users *gocache.Cache
}

func NewMemoCache() *MemoCache {
	return &MemoCache{users: gocache.New(30*time.Minute, 10*time.Minute)}
}

func (m *MemoCache) GetUser(courseEnrollmentID string) (string, bool) {
	v, ok := m.users.Get(courseEnrollmentID)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, true
}

func (m *MemoCache) PutUser(courseEnrollmentID, userID string) {
	m.users.Set(courseEnrollmentID, userID, gocache.DefaultExpiration)
}
