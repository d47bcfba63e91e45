package live

import "sync"

// Watch subscribes fn to cell and holds poller for as long as the returned
// subscription lives.
func Watch[T any](cell *Cell[T], poller *Poller, fn func(T)) Subscription {
	sub := cell.Subscribe(fn)
	release := poller.Acquire()

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() {
			sub.Unsubscribe()
			release()
		})
	})
}
