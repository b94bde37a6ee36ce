package services

import "github.com/yeremiapane/restaurant-pos/kds"

// Notifier receives live events after a change has been committed. *kds.Hub is
// the production implementation.
type Notifier interface {
	Notify(msg kds.Message)
}

type nopNotifier struct{}

func (nopNotifier) Notify(kds.Message) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
