package ledger

import (
	"strings"
	"sync"
	"time"
)

// memStore is the degraded in-process fallback consulted when MySQL cannot
// answer. Every successful durable write is mirrored here, so a short
// database outage does not let an identity that already spun slip through.
// It is less durable on purpose: state is lost on restart.
type memRecord struct {
	phoneNumber string
	deviceID    string
	spinDate    string
	gotTryAgain bool
	timestamp   int64
}

type memStore struct {
	mu      sync.Mutex
	records map[string]memRecord // keyed by "phone|device|date"
}

func newMemStore() *memStore {
	return &memStore{records: map[string]memRecord{}}
}

func memKey(id Identity, date string) string {
	return id.Key() + "|" + date
}

func (m *memStore) put(id Identity, date string, gotTryAgain bool, ts int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	m.records[memKey(id, date)] = memRecord{
		phoneNumber: id.PhoneNumber,
		deviceID:    id.DeviceID,
		spinDate:    date,
		gotTryAgain: gotTryAgain,
		timestamp:   ts,
	}
}

// setTryAgain flips the bonus flag on all of today's records matching the
// identity by phone or device, mirroring the durable batch update.
func (m *memStore) setTryAgain(id Identity, date string, v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.records {
		if r.spinDate == date && (r.phoneNumber == id.PhoneNumber || r.deviceID == id.DeviceID) {
			r.gotTryAgain = v
			m.records[k] = r
		}
	}
}

// hasSpun reports whether a record matching phone OR device exists for the
// date with the bonus flag unconsumed state requested by the caller.
func (m *memStore) hasSpun(id Identity, date string) (spun, bonus bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.spinDate != date {
			continue
		}
		if r.phoneNumber == id.PhoneNumber || r.deviceID == id.DeviceID {
			if r.gotTryAgain {
				bonus = true
			} else {
				spun = true
			}
		}
	}
	return spun, bonus
}

// pruneLocked drops records older than today to keep the map small. Called
// with the mutex held.
func (m *memStore) pruneLocked() {
	today := time.Now().In(time.Local).Format("2006-01-02")
	for k, r := range m.records {
		if strings.Compare(r.spinDate, today) < 0 {
			delete(m.records, k)
		}
	}
}
