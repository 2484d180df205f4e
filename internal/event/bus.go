package event

import (
	"context"
	"log"
	"sync"
	"time"
)

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// Event 表示系统中的一个业务事件
type Event struct {
	Type      string      `json:"Type"`
	Data      interface{} `json:"Data"`
	Timestamp time.Time   `json:"Timestamp"`
}

// Handler 事件处理函数
type Handler func(ctx context.Context, event Event) error

// Bus 事件总线，把工作流与通知解耦
type Bus struct {
	handlers map[string][]Handler
	mu       sync.RWMutex

	// 异步处理的缓冲通道
	eventChan chan Event
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewBus 创建新的事件总线并启动处理协程
func NewBus(bufferSize int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())

	bus := &Bus{
		handlers:  make(map[string][]Handler),
		eventChan: make(chan Event, bufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	bus.wg.Add(1)
	go bus.processEvents()

	return bus
}

// Subscribe 订阅事件类型，eventType 为 Wildcard 时接收全部事件
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	log.Printf("EventBus: Subscribed to event type: %s", eventType)
}

// Publish 异步发布事件，缓冲区满时丢弃
func (b *Bus) Publish(eventType string, data interface{}) {
	event := Event{Type: eventType, Data: data, Timestamp: time.Now()}

	select {
	case <-b.ctx.Done():
		return
	default:
	}

	select {
	case b.eventChan <- event:
	default:
		log.Printf("EventBus: Warning - event channel full, dropping event: %s", event.Type)
	}
}

// PublishSync 同步发布事件（立即处理）
func (b *Bus) PublishSync(ctx context.Context, eventType string, data interface{}) {
	b.dispatch(ctx, Event{Type: eventType, Data: data, Timestamp: time.Now()})
}

func (b *Bus) processEvents() {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.eventChan:
			b.dispatch(b.ctx, event)
		case <-b.ctx.Done():
			// drain what is already queued so that shutdown does not lose events
			for {
				select {
				case event := <-b.eventChan:
					b.dispatch(context.Background(), event)
				default:
					log.Println("EventBus: Shutting down event processor")
					return
				}
			}
		}
	}
}

// dispatch 依次调用类型订阅者与通配订阅者
func (b *Bus) dispatch(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.Type])+len(b.handlers[Wildcard]))
	handlers = append(handlers, b.handlers[event.Type]...)
	handlers = append(handlers, b.handlers[Wildcard]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.safeCall(ctx, h, event)
	}
}

func (b *Bus) safeCall(ctx context.Context, h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("EventBus: Panic in handler for %s: %v", event.Type, r)
		}
	}()
	if err := h(ctx, event); err != nil {
		log.Printf("EventBus: Handler error for event %s: %v", event.Type, err)
	}
}

// Shutdown 停止处理协程，已入队的事件会先处理完
func (b *Bus) Shutdown() {
	b.closeOnce.Do(func() {
		log.Println("EventBus: Shutting down...")
		b.cancel()
		b.wg.Wait()
		log.Println("EventBus: Shutdown complete")
	})
}

// GetSubscriberCount 获取某个事件类型的订阅者数量（用于调试）
func (b *Bus) GetSubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}
