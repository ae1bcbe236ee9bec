package host

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/majinxin2003/IDArling/internal/identity"
	"github.com/majinxin2003/IDArling/internal/store"
)

// Sim is an in-process host backed by a document sidecar store.
//
// Fire delivers a notification synchronously to the handlers currently
// subscribed to its topic and to nobody else. Execute runs inline unless a
// Loop is attached, in which case it posts to the loop.
type Sim struct {
	store  *store.Store
	loop   *Loop
	logger *slog.Logger

	mu       sync.Mutex
	subs     map[Topic][]*simSub
	failures map[Topic]error
	comments map[commentKey]string
	screenEA uint64
	warnings []string
	closed   bool
}

type commentKey struct {
	ea         uint64
	repeatable bool
}

type simSub struct {
	sim    *Sim
	topic  Topic
	h      Handler
	active bool
}

// SimOption configures a Sim.
type SimOption func(*Sim)

// WithLoop makes Execute post to loop instead of running inline.
func WithLoop(loop *Loop) SimOption {
	return func(s *Sim) { s.loop = loop }
}

// WithLogger sets the logger used for operator warnings.
func WithLogger(logger *slog.Logger) SimOption {
	return func(s *Sim) { s.logger = logger }
}

// NewSim creates a simulated host whose netnodes live in st.
func NewSim(st *store.Store, opts ...SimOption) *Sim {
	s := &Sim{
		store:    st,
		logger:   slog.Default(),
		subs:     make(map[Topic][]*simSub),
		failures: make(map[Topic]error),
		comments: make(map[commentKey]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers h for topic.
func (s *Sim) Subscribe(topic Topic, h Handler) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failures[topic]; ok {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	sub := &simSub{sim: s, topic: topic, h: h, active: true}
	s.subs[topic] = append(s.subs[topic], sub)
	return sub, nil
}

func (sub *simSub) Cancel() error {
	s := sub.sim
	s.mu.Lock()
	defer s.mu.Unlock()

	if !sub.active {
		return fmt.Errorf("cancel %s: %w", sub.topic, ErrNotSubscribed)
	}
	sub.active = false

	list := s.subs[sub.topic]
	for i, other := range list {
		if other == sub {
			s.subs[sub.topic] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	return nil
}

// FailSubscribe makes every later Subscribe to topic fail with err.
// A nil err clears the failure.
func (s *Sim) FailSubscribe(topic Topic, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.failures, topic)
		return
	}
	s.failures[topic] = err
}

// Fire delivers n to the handlers subscribed to its topic and returns how
// many received it.
func (s *Sim) Fire(n Notification) int {
	s.mu.Lock()
	handlers := make([]Handler, 0, len(s.subs[n.Topic()]))
	for _, sub := range s.subs[n.Topic()] {
		handlers = append(handlers, sub.h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(n)
	}
	return len(handlers)
}

// Subscribed returns how many handlers are registered for topic.
func (s *Sim) Subscribed(topic Topic) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[topic])
}

// Total returns the number of live subscriptions across all topics.
func (s *Sim) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, list := range s.subs {
		n += len(list)
	}
	return n
}

func (s *Sim) ScreenEA() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screenEA
}

// SetScreenEA moves the simulated cursor.
func (s *Sim) SetScreenEA(ea uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenEA = ea
}

func (s *Sim) Comment(ea uint64, repeatable bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments[commentKey{ea, repeatable}]
}

// SetComment stores a comment without notifying anyone; callers Fire a
// CmtChanged afterwards, as the real host does.
func (s *Sim) SetComment(ea uint64, repeatable bool, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[commentKey{ea, repeatable}] = text
}

func (s *Sim) Netnode(name string) (identity.Node, error) {
	if s.store == nil {
		return nil, fmt.Errorf("netnode %q: no document open", name)
	}
	return s.store.Node(name), nil
}

func (s *Sim) Execute(fn func()) bool {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return false
	}

	if s.loop != nil {
		return s.loop.Post(fn)
	}
	fn()
	return true
}

// Shutdown makes every later Execute return false.
func (s *Sim) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Sim) Warn(msg string) {
	s.logger.Warn("host warning", "message", msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, msg)
}

// Warnings returns the messages passed to Warn, oldest first.
func (s *Sim) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.warnings...)
}

var _ Host = (*Sim)(nil)
