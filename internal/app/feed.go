package app

import (
	"sync"

	"quiz-duel-service/internal/domain"
)

// Feed fans out committed game views to live subscribers, keyed by game id.
// Views that arrive after a newer view of the same game are dropped, so
// subscribers never move backwards when publishers race after commit.
type Feed struct {
	mu       sync.Mutex
	subs     map[string]map[chan domain.GameView]struct{}
	// last delivered version per game with live subscribers
	versions map[string]int
}

func NewFeed() *Feed {
	return &Feed{
		subs:     make(map[string]map[chan domain.GameView]struct{}),
		versions: make(map[string]int),
	}
}

// viewVersion orders views of one game. Status only moves forward and answers
// are only appended, so the pair grows with every committed change.
func viewVersion(view domain.GameView) int {
	rank := 0
	switch view.Status {
	case domain.GameActive:
		rank = 1
	case domain.GameFinished:
		rank = 2
	}
	answers := len(view.FirstPlayer.Answers)
	if view.SecondPlayer != nil {
		answers += len(view.SecondPlayer.Answers)
	}
	return rank*(2*domain.QuestionsPerGame+1) + answers
}

// Subscribe returns a channel of views for gameID.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *Feed) Subscribe(gameID string) (<-chan domain.GameView, func()) {
	ch := make(chan domain.GameView, 8)

	f.mu.Lock()
	set, ok := f.subs[gameID]
	if !ok {
		set = make(map[chan domain.GameView]struct{})
		f.subs[gameID] = set
	}
	set[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		set, ok := f.subs[gameID]
		if !ok {
			return
		}
		if _, ok := set[ch]; ok {
			delete(set, ch)
			close(ch)
		}
		if len(set) == 0 {
			delete(f.subs, gameID)
			delete(f.versions, gameID)
		}
	}
	return ch, cancel
}

// Publish delivers view to every subscriber of its game. A full subscriber
// loses its oldest pending view instead of blocking the publisher.
func (f *Feed) Publish(view domain.GameView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := f.subs[view.ID]
	if len(subs) == 0 {
		return
	}
	version := viewVersion(view)
	if last, ok := f.versions[view.ID]; ok && version < last {
		return
	}
	f.versions[view.ID] = version
	for ch := range subs {
		select {
		case ch <- view:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

// Subscribers returns the number of live subscriptions for gameID.
func (f *Feed) Subscribers(gameID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[gameID])
}
