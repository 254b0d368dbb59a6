package conversation

import (
	"sort"

	"github.com/aniladanir/webhook-inbox/internal/domain"
)

// aggregate folds messages of one conversation into a summary. The result does not
// depend on the order in which messages are added.
type aggregate struct {
	summary    domain.ConversationSummary
	profileSeq int64
}

func newAggregate(conversationID string) *aggregate {
	return &aggregate{summary: domain.ConversationSummary{ConversationID: conversationID}}
}

func (a *aggregate) add(msg domain.Message) {
	a.summary.MessageCount++
	if a.summary.MessageCount == 1 || later(msg, a.summary.LastMessage) {
		a.summary.LastMessage = msg.Clone()
	}
	a.observeProfile(msg)
}

// update applies a status change. Only the last message snapshot carries status.
func (a *aggregate) update(msg domain.Message) bool {
	last := &a.summary.LastMessage
	if last.ID != msg.ID || !msg.Status.After(last.Status) {
		return false
	}
	last.Status = msg.Status
	return true
}

// observeProfile keeps the profile of the latest inserted inbound message that carries
// one. A known display name is never replaced by the Unknown placeholder.
func (a *aggregate) observeProfile(msg domain.Message) {
	p := msg.SenderProfile
	if p == nil || msg.Direction == domain.DirectionOutbound {
		return
	}
	cur := a.summary.ParticipantProfile
	switch {
	case cur == nil:
	case p.Known() && !cur.Known():
	case p.Known() == cur.Known() && msg.Seq > a.profileSeq:
	default:
		return
	}
	profile := *p
	a.summary.ParticipantProfile = &profile
	a.profileSeq = msg.Seq
}

func (a *aggregate) snapshot() domain.ConversationSummary {
	s := a.summary
	s.LastMessage = s.LastMessage.Clone()
	if s.ParticipantProfile != nil {
		p := *s.ParticipantProfile
		s.ParticipantProfile = &p
	}
	return s
}

// later orders messages by OccurredAt, then by insertion order.
func later(a, b domain.Message) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.After(b.OccurredAt)
	}
	return a.Seq > b.Seq
}

// Summarize computes the summary of one conversation by scanning its messages.
// ok is false when messages is empty.
func Summarize(conversationID string, messages []domain.Message) (summary domain.ConversationSummary, ok bool) {
	if len(messages) == 0 {
		return domain.ConversationSummary{}, false
	}
	agg := newAggregate(conversationID)
	for _, m := range messages {
		agg.add(m)
	}
	return agg.snapshot(), true
}

// sortSummaries orders summaries most recent first.
func sortSummaries(summaries []domain.ConversationSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return later(summaries[i].LastMessage, summaries[j].LastMessage)
	})
}
