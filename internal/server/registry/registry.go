// Package registry 维护当前在线的连接集合，用于广播和清理。
package registry

import (
	"sync"

	"github.com/palemoky/bookclub-trivia/internal/protocol"
	"github.com/palemoky/bookclub-trivia/internal/types"
)

// Registry 连接注册表，只记录成员关系，不保证顺序
type Registry struct {
	clients map[string]types.ClientInterface
	mu      sync.RWMutex
}

// New 创建注册表
func New() *Registry {
	return &Registry{clients: make(map[string]types.ClientInterface)}
}

// Register 添加连接，返回是否为新连接
func (r *Registry) Register(client types.ClientInterface) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := client.GetID()
	if _, ok := r.clients[id]; ok {
		return false
	}
	r.clients[id] = client
	return true
}

// Unregister 移除连接，重复移除是空操作。返回连接是否存在。
func (r *Registry) Unregister(client types.ClientInterface) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := client.GetID()
	if cur, ok := r.clients[id]; !ok || cur != client {
		return false
	}
	delete(r.clients, id)
	return true
}

// Count 在线连接数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast 广播消息给所有连接
func (r *Registry) Broadcast(msg *protocol.Message) {
	for _, client := range r.snapshot() {
		client.SendMessage(msg)
	}
}

// CloseAll 关闭并移除所有连接
func (r *Registry) CloseAll() {
	r.mu.Lock()
	clients := make([]types.ClientInterface, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.clients = make(map[string]types.ClientInterface)
	r.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

// snapshot 复制一份连接列表，发送时不持有锁
func (r *Registry) snapshot() []types.ClientInterface {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ClientInterface, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}
