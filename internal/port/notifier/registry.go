package notifier

import (
	"fmt"
	"sync"

	"github.com/fluxcrm/leadengine/internal/domain/message"
)

// Factory is a constructor function that creates a new Notifier instance.
type Factory func(config map[string]string) (Notifier, error)

var (
	mu        sync.RWMutex
	factories = make(map[message.Channel]Factory)
)

// Register makes a notifier factory available for a channel. It is
// typically called from an init() function in the adapter package.
func Register(ch message.Channel, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[ch]; exists {
		panic(fmt.Sprintf("notifier: duplicate registration for channel %q", ch))
	}
	factories[ch] = factory
}

// New creates a Notifier for the given channel using the registered factory.
func New(ch message.Channel, config map[string]string) (Notifier, error) {
	mu.RLock()
	factory, ok := factories[ch]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("notifier: no provider registered for channel %q", ch)
	}
	return factory(config)
}

// Available returns the channels with a registered notifier.
func Available() []message.Channel {
	mu.RLock()
	defer mu.RUnlock()

	channels := make([]message.Channel, 0, len(factories))
	for ch := range factories {
		channels = append(channels, ch)
	}
	return channels
}
