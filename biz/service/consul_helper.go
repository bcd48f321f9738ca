package service

import (
	"fmt"

	"github.com/hashicorp/consul/api"
)

// DefaultServiceName 未配置 hertz.service 时的注册名
const DefaultServiceName = "papertrade"

// ConsulHelper 封装 Consul 注册与注销
// 使用前请确保 Consul agent 已启动
type ConsulHelper struct {
	client  *api.Client
	service string
}

type ConsulOption func(cfg *api.Config, h *ConsulHelper)

// WithServiceName 注册使用的服务名
func WithServiceName(name string) ConsulOption {
	return func(_ *api.Config, h *ConsulHelper) {
		if name != "" {
			h.service = name
		}
	}
}

// WithBasicAuth Consul 开启 HTTP 认证时使用
func WithBasicAuth(username, password string) ConsulOption {
	return func(cfg *api.Config, _ *ConsulHelper) {
		if username != "" {
			cfg.HttpAuth = &api.HttpBasicAuth{Username: username, Password: password}
		}
	}
}

// NewConsulHelper 创建 Consul 客户端
func NewConsulHelper(addr string, opts ...ConsulOption) (*ConsulHelper, error) {
	cfg := api.DefaultConfig()
	cfg.Address = addr
	helper := &ConsulHelper{service: DefaultServiceName}
	for _, opt := range opts {
		opt(cfg, helper)
	}
	cli, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	helper.client = cli
	return helper, nil
}

// NewConsulHelperWithAddrs 支持多个 Consul 地址高可用，返回第一个可用的
func NewConsulHelperWithAddrs(addrs []string, opts ...ConsulOption) (*ConsulHelper, error) {
	var lastErr error
	for _, addr := range addrs {
		helper, err := NewConsulHelper(addr, opts...)
		if err != nil {
			lastErr = err
			continue
		}
		if _, err := helper.client.Agent().Self(); err != nil {
			lastErr = err
			continue
		}
		return helper, nil
	}
	return nil, fmt.Errorf("all consul addresses failed: %v", lastErr)
}

// RegisterNode 注册交易节点，健康检查走 /ping
func (c *ConsulHelper) RegisterNode(nodeID, host string, port int) error {
	reg := &api.AgentServiceRegistration{
		ID:      nodeID,
		Name:    c.service,
		Address: host,
		Port:    port,
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/ping", host, port),
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
	return c.client.Agent().ServiceRegister(reg)
}

// DeregisterNode 下线时注销
func (c *ConsulHelper) DeregisterNode(nodeID string) error {
	return c.client.Agent().ServiceDeregister(nodeID)
}
