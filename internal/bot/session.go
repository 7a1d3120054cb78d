package bot

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"shopbot/internal/domain"
)

// Flow multi-step conversation a user is in
type Flow int

const (
	FlowNone Flow = iota
	FlowCheckout
	FlowNewProduct
	FlowNewCategory
	FlowAttach
	FlowSearch
	FlowQuantity
	FlowBroadcast
)

// Step position inside a flow
type Step int

const (
	StepNone Step = iota

	StepContact
	StepLocation
	StepAddress
	StepNote
	StepConfirm

	StepPhoto
	StepMeta
	StepImageChoice

	StepCategoryName
	StepPickProduct
	StepPickCategory

	StepQuery
	StepQuantity
	StepBroadcastText
)

// Session is the per-user conversation record. Fields are only meaningful
// for the flow that set them.
type Session struct {
	Flow Flow
	Step Step

	// checkout
	Phone    string
	Location *domain.GeoPoint
	Address  string
	Note     string
	// Quote fingerprints the cart shown in the confirmation summary.
	Quote    string

	// curation
	PhotoRef    string
	Name        string
	Description string
	Candidates  []string

	// attach picker and quantity entry
	ProductID int64
	Unit      domain.Unit
}

// SessionStore holds conversation state between events.
type SessionStore interface {
	Get(userID int64) (Session, bool)
	Put(userID int64, s Session)
	Delete(userID int64)
	Len() int
}

// LRUSessions is a bounded session store. Sessions idle longer than the TTL
// and the least recently used ones beyond capacity are dropped.
type LRUSessions struct {
	cache *expirable.LRU[int64, Session]
}

func NewLRUSessions(capacity int, ttl time.Duration) *LRUSessions {
	if capacity <= 0 {
		capacity = 10000
	}
	return &LRUSessions{cache: expirable.NewLRU[int64, Session](capacity, nil, ttl)}
}

func (s *LRUSessions) Get(userID int64) (Session, bool) {
	return s.cache.Get(userID)
}

func (s *LRUSessions) Put(userID int64, sess Session) {
	s.cache.Add(userID, sess)
}

func (s *LRUSessions) Delete(userID int64) {
	s.cache.Remove(userID)
}

func (s *LRUSessions) Len() int { return s.cache.Len() }
