package cached

import (
	"context"
	"sync"
)

// Entity 包一层懒刷新的远程聚合值：Peek立刻返回当前值（可能是旧的），
// 同时最多只有一次刷新在途。刷新失败不覆盖上一次的好值，也不发通知。
type Entity[T any] struct {
	fetch func(ctx context.Context) (T, error)

	mu        sync.Mutex
	value     T
	refreshing bool

	updated chan T
}

func New[T any](initValue T, fetch func(ctx context.Context) (T, error)) *Entity[T] {
	return &Entity[T]{
		fetch:   fetch,
		value:   initValue,
		updated: make(chan T, 1),
	}
}

// Peek 返回当前值；若没有刷新在途则顺带启动一次。不等待刷新完成。
func (e *Entity[T]) Peek(ctx context.Context) T {
	e.mu.Lock()
	v := e.value
	if !e.refreshing {
		e.refreshing = true
		go e.refresh(ctx)
	}
	e.mu.Unlock()
	return v
}

// Value 只读当前值，不触发刷新。
func (e *Entity[T]) Value() T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// Updated 刷新成功后收到新值。缓冲为1，未被消费的旧通知会被挤掉。
func (e *Entity[T]) Updated() <-chan T {
	return e.updated
}

func (e *Entity[T]) refresh(ctx context.Context) {
	v, err := e.fetch(ctx)

	e.mu.Lock()
	e.refreshing = false
	if err != nil {
		e.mu.Unlock()
		return
	}
	e.value = v
	e.mu.Unlock()

	select {
	case e.updated <- v:
	default:
		select {
		case <-e.updated:
		default:
		}
		select {
		case e.updated <- v:
		default:
		}
	}
}
