package proxy

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"sync"
	"time"
)

// 常见本地代理端口(Clash、V2Ray、SS等),按顺序探测
var defaultProbePorts = []int{7890, 7891, 7897, 7898, 10808, 10809, 1080, 789}

const probeTimeout = 500 * time.Millisecond

// Resolver 本地HTTP代理自动探测。进程内只探测一次,之后复用结果;
// 探测不到代理不算错误,走直连。
type Resolver struct {
	configuredURL string
	probePorts    []int
	timeout       time.Duration

	once     sync.Once
	resolved *url.URL
}

func NewResolver(configuredURL string) *Resolver {
	return &Resolver{
		configuredURL: configuredURL,
		probePorts:    defaultProbePorts,
		timeout:       probeTimeout,
	}
}

// Resolve 返回可用的代理URL,没有则返回nil(直连)
func (r *Resolver) Resolve() *url.URL {
	r.once.Do(func() {
		r.resolved = r.detect()
	})
	return r.resolved
}

func (r *Resolver) detect() *url.URL {
	// 1. 优先使用环境配置的代理,但要先确认端口可连
	if r.configuredURL != "" {
		if u, err := url.Parse(r.configuredURL); err == nil && u.Host != "" {
			if r.dialable(u.Host) {
				log.Printf("[Proxy] Using configured proxy: %s", u.Host)
				return u
			}
			log.Printf("[Proxy] Configured proxy %s unreachable, probing local ports", u.Host)
		}
	}

	// 2. 探测常见本地代理端口
	for _, port := range r.probePorts {
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		if r.dialable(addr) {
			u := &url.URL{Scheme: "http", Host: addr}
			log.Printf("[Proxy] Detected local proxy on %s", addr)
			return u
		}
	}

	// 3. 都不可用,直连
	return nil
}

func (r *Resolver) dialable(hostport string) bool {
	conn, err := net.DialTimeout("tcp", hostport, r.timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
