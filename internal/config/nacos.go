package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
)

// nacosEnv Nacos 连接参数，全部来自环境变量
type nacosEnv struct {
	servers   string // NACOS_SERVER_ADDR，逗号分隔 host:port
	dataID    string
	group     string
	namespace string
	username  string
	password  string
	timeoutMs uint64
}

// nacosFromEnv 未设置 NACOS_SERVER_ADDR 时返回 false
func nacosFromEnv() (nacosEnv, bool) {
	env := nacosEnv{
		servers:   strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR")),
		dataID:    strings.TrimSpace(os.Getenv("NACOS_DATA_ID")),
		group:     envOr("NACOS_GROUP", "DEFAULT_GROUP"),
		namespace: envOr("NACOS_NAMESPACE", "public"),
		username:  strings.TrimSpace(os.Getenv("NACOS_USERNAME")),
		password:  strings.TrimSpace(os.Getenv("NACOS_PASSWORD")),
		timeoutMs: 5000,
	}
	if t, err := strconv.ParseUint(os.Getenv("NACOS_TIMEOUT_MS"), 10, 64); err == nil && t > 0 {
		env.timeoutMs = t
	}
	return env, env.servers != ""
}

func (e nacosEnv) param() vo.ConfigParam {
	return vo.ConfigParam{DataId: e.dataID, Group: e.group}
}

func newNacosClient(env nacosEnv) (config_client.IConfigClient, error) {
	if env.dataID == "" {
		return nil, errors.New("NACOS_DATA_ID not set")
	}
	servers, err := parseNacosServers(env.servers)
	if err != nil {
		return nil, err
	}
	cc := constant.ClientConfig{
		NamespaceId:         env.namespace,
		TimeoutMs:           env.timeoutMs,
		NotLoadCacheAtStart: true,
		LogDir:              "/tmp/nacos/log",
		CacheDir:            "/tmp/nacos/cache",
		LogLevel:            "warn",
	}
	if env.username != "" && env.password != "" {
		cc.Username, cc.Password = env.username, env.password
	}
	client, err := clients.NewConfigClient(vo.NacosClientParam{ClientConfig: &cc, ServerConfigs: servers})
	if err != nil {
		return nil, fmt.Errorf("create nacos config client: %w", err)
	}
	return client, nil
}

// parseNacosServers 解析 "host:port,host:port"
func parseNacosServers(addrs string) ([]constant.ServerConfig, error) {
	var out []constant.ServerConfig
	for _, addr := range strings.Split(addrs, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid nacos server %q: %w", addr, err)
		}
		port, err := strconv.ParseUint(portStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid nacos port %q", portStr)
		}
		out = append(out, constant.ServerConfig{IpAddr: host, Port: port})
	}
	if len(out) == 0 {
		return nil, errors.New("no nacos server address")
	}
	return out, nil
}

func loadFromNacos(_ context.Context, env nacosEnv) (*Config, error) {
	client, err := newNacosClient(env)
	if err != nil {
		return nil, err
	}
	content, err := client.GetConfig(env.param())
	if err != nil {
		return nil, fmt.Errorf("get nacos config: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("nacos config empty: dataId=%s group=%s", env.dataID, env.group)
	}
	var cfg Config
	if err := parse(filepath.Ext(env.dataID), []byte(content), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
