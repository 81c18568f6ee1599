package app

import "quiz-duel-service/internal/domain"

// bonusRecipient picks the session that earns the completion bonus once both
// sessions are done. The session whose last answer landed first leads; equal
// timestamps go to the lower session id. The leader only keeps the bonus if it
// answered at least one question correctly.
func bonusRecipient(a, b *domain.PlayerSession) *domain.PlayerSession {
	leader, other := a, b
	la, lb := a.LastAnsweredAt(), b.LastAnsweredAt()
	if lb.Before(la) || (lb.Equal(la) && b.ID < a.ID) {
		leader, other = b, a
	}
	if leader.CorrectCount() > 0 {
		return leader
	}
	return other
}

// readyToFinish reports whether both sessions of an active game have answered everything.
func readyToFinish(g domain.Game) bool {
	return g.Status == domain.GameActive &&
		g.First != nil && g.Second != nil &&
		g.First.Done() && g.Second.Done()
}
