package resolver

import "github.com/playdar/resolverd/internal/ids"

// SubscriptionID identifies a subscriber within a single Query's subscriber
// set; it is only meaningful paired with that Query's qid.
type SubscriptionID uint64

// subscriberQueueDepth bounds each subscriber's delivery channel. A slow
// subscriber (a stalled CometSession write) never blocks report_results —
// a full channel drops the notification, matching the "weak relation, dead
// subscriber dropped silently" language of §3 (a backed-up subscriber is
// treated the same as a dead one: it stops receiving until it catches up).
const subscriberQueueDepth = 32

// Subscription is the handle a consumer (a poll waiter or a CometSession)
// holds to receive a query's results as they are appended. It replaces the
// cyclic query⇄callback⇄session relationship of the original design (§9):
// Subscription owns the receive end of a channel, the Query owns only the
// send end, and Unsubscribe detaches the send end from the Query without
// either side holding a strong reference to the other's object graph.
type Subscription struct {
	id    SubscriptionID
	qid   ids.QID
	query *Query
	ch    chan *ResolvedItem
}

// C returns the channel new results are delivered on. No further values
// arrive once the subscription is unsubscribed or the query is cancelled;
// the channel itself is never closed, since report_results may still hold
// a stale reference to it briefly after Unsubscribe returns.
func (s *Subscription) C() <-chan *ResolvedItem {
	return s.ch
}

// QID returns the identifier of the query this subscription follows.
func (s *Subscription) QID() ids.QID {
	return s.qid
}

// Unsubscribe detaches the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.query.unsubscribe(s.id)
}
