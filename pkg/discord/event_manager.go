package discord

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/PancyStudios/HelperBot/pkg/anticrash"
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/PancyStudios/HelperBot/pkg/metrics"
	"github.com/bwmarrin/discordgo"
)

var (
	ErrListenerNotPointer    = errors.New("listener must be a non-nil pointer")
	ErrListenerSubscribed    = errors.New("listener already subscribed")
	ErrListenerNotSubscribed = errors.New("listener not subscribed")
	ErrNoHandlers            = errors.New("listener has no On* event handlers")
	ErrInvalidHandler        = errors.New("handler must be func(*discordgo.Session, *discordgo.<Event>)")
)

// handlerAdder is the part of *discordgo.Session that registers event handlers
type handlerAdder interface {
	AddHandler(handler interface{}) func()
}

var _ handlerAdder = (*discordgo.Session)(nil)

const handlerPrefix = "On"

var sessionType = reflect.TypeOf((*discordgo.Session)(nil))

// EventManager subscribes listener objects to gateway events. Every exported
// method named On<Something> with the shape func(*discordgo.Session, *discordgo.<Event>)
// becomes a handler for that event.
type EventManager struct {
	session handlerAdder
	metrics *metrics.Metrics

	mu        sync.Mutex
	listeners map[interface{}][]func()
	handlers  int
}

// NewEventManager creates an event manager registering on the given session
func NewEventManager(session handlerAdder, m *metrics.Metrics) *EventManager {
	return &EventManager{
		session:   session,
		metrics:   m,
		listeners: make(map[interface{}][]func()),
	}
}

// Subscribe registers every handler method of listener
func (em *EventManager) Subscribe(listener interface{}) error {
	v := reflect.ValueOf(listener)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrListenerNotPointer
	}

	em.mu.Lock()
	defer em.mu.Unlock()

	if _, ok := em.listeners[listener]; ok {
		return ErrListenerSubscribed
	}

	t := v.Type()
	var removers []func()
	for i := 0; i < t.NumMethod(); i++ {
		method := t.Method(i)
		if !strings.HasPrefix(method.Name, handlerPrefix) {
			continue
		}

		fn := v.Method(i)
		event, ok := handlerEvent(fn.Type())
		if !ok {
			logger.Warn(fmt.Sprintf("%s.%s no tiene la firma de un evento, se omite", t.Elem().Name(), method.Name), "EventManager")
			continue
		}

		removers = append(removers, em.session.AddHandler(em.wrap(fn, event)))
		logger.Debug(fmt.Sprintf("Evento '%s' registrado (%s.%s)", event, t.Elem().Name(), method.Name), "EventManager")
	}

	if len(removers) == 0 {
		return fmt.Errorf("%w: %s", ErrNoHandlers, t.Elem().Name())
	}

	em.listeners[listener] = removers
	em.handlers += len(removers)
	return nil
}

// Unsubscribe removes every handler registered for listener
func (em *EventManager) Unsubscribe(listener interface{}) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	removers, ok := em.listeners[listener]
	if !ok {
		return ErrListenerNotSubscribed
	}
	for _, remove := range removers {
		remove()
	}
	delete(em.listeners, listener)
	em.handlers -= len(removers)
	return nil
}

// On subscribes a single handler function. The returned func removes it.
func (em *EventManager) On(handler interface{}) (func(), error) {
	fn := reflect.ValueOf(handler)
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, ErrInvalidHandler
	}
	event, ok := handlerEvent(fn.Type())
	if !ok {
		return nil, ErrInvalidHandler
	}

	remove := em.session.AddHandler(em.wrap(fn, event))

	em.mu.Lock()
	em.handlers++
	em.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			remove()
			em.mu.Lock()
			em.handlers--
			em.mu.Unlock()
		})
	}, nil
}

// Listeners returns the number of subscribed listener objects
func (em *EventManager) Listeners() int {
	em.mu.Lock()
	defer em.mu.Unlock()
	return len(em.listeners)
}

// Handlers returns the number of registered handler functions
func (em *EventManager) Handlers() int {
	em.mu.Lock()
	defer em.mu.Unlock()
	return em.handlers
}

// handlerEvent checks the shape func(*discordgo.Session, *discordgo.X) and returns X.
// X must be a gateway event; other discordgo structs such as *discordgo.User are rejected.
func handlerEvent(ft reflect.Type) (string, bool) {
	if ft.Kind() != reflect.Func || ft.NumIn() != 2 || ft.NumOut() != 0 {
		return "", false
	}
	if ft.In(0) != sessionType {
		return "", false
	}
	ev := ft.In(1)
	if _, ok := gatewayEvents[ev]; !ok {
		return "", false
	}
	return ev.Elem().Name(), true
}

// wrap builds a function of the exact handler type, so discordgo still
// dispatches on it, that recovers panics and counts the event.
func (em *EventManager) wrap(fn reflect.Value, event string) interface{} {
	return reflect.MakeFunc(fn.Type(), func(args []reflect.Value) []reflect.Value {
		outcome := metrics.OutcomeOK
		defer func() {
			if r := recover(); r != nil {
				anticrash.Recover(r)
				logger.Error(fmt.Sprintf("Panic en el evento %s: %v", event, r), "EventManager")
				outcome = metrics.OutcomePanic
			}
			em.metrics.ObserveEvent(event, outcome)
		}()
		fn.Call(args)
		return nil
	}).Interface()
}
