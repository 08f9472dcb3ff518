// Package signals abstracts process termination signals so that components which clean up on termination
// can be driven by real OS signals in production and by hand in tests.
package signals

import (
	"os"
	"os/signal"
	"sync"
)

// Notifier delivers termination signals to subscribed channels.
// Its methods have the same semantics as signal.Notify and signal.Stop.
type Notifier interface {
	Notify(c chan<- os.Signal)
	Stop(c chan<- os.Signal)
}

// OS is a Notifier backed by the os/signal package.
// If Signals is empty, Termination is used.
type OS struct {
	Signals []os.Signal
}

func (o OS) Notify(c chan<- os.Signal) {
	sigs := o.Signals
	if len(sigs) == 0 {
		sigs = Termination
	}
	signal.Notify(c, sigs...)
}

func (o OS) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

// Manual is a Notifier whose signals are raised explicitly with Raise.
// The zero value is ready to use.
type Manual struct {
	m    sync.Mutex
	subs []chan<- os.Signal
}

func (m *Manual) Notify(c chan<- os.Signal) {
	m.m.Lock()
	defer m.m.Unlock()
	m.subs = append(m.subs, c)
}

func (m *Manual) Stop(c chan<- os.Signal) {
	m.m.Lock()
	defer m.m.Unlock()
	for i := 0; i < len(m.subs); i++ {
		if m.subs[i] == c {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			i--
		}
	}
}

// Raise delivers sig to every subscribed channel.
// Like the os/signal package, it does not block: a subscriber whose channel is full misses the signal.
func (m *Manual) Raise(sig os.Signal) {
	m.m.Lock()
	defer m.m.Unlock()
	for _, c := range m.subs {
		select {
		case c <- sig:
		default:
		}
	}
}

// Subscribers returns the number of subscribed channels.
func (m *Manual) Subscribers() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.subs)
}
