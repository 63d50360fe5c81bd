package config

import (
	"context"
	"fmt"
	"path/filepath"

	"lottery-server/common/logger"

	"go.uber.org/zap"
)

// StartWatch 监听 Nacos 配置变更并回调 onChange(old, new)；本地文件配置不监听
func StartWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	env, ok := nacosFromEnv()
	if !ok {
		logger.Info("[Config] Nacos 未配置，跳过配置监听")
		return nil
	}
	client, err := newNacosClient(env)
	if err != nil {
		return fmt.Errorf("nacos watch: %w", err)
	}

	param := env.param()
	param.OnChange = func(namespace, group, dataId, data string) {
		logger.Info("[Config] Nacos 配置变更",
			zap.String("namespace", namespace), zap.String("group", group), zap.String("data_id", dataId))
		if err := apply(filepath.Ext(dataId), []byte(data), onChange); err != nil {
			logger.Error("[Config] 解析 Nacos 配置失败，保留旧配置", zap.Error(err))
		}
	}
	if err := client.ListenConfig(param); err != nil {
		return fmt.Errorf("listen nacos config: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = client.CancelListenConfig(env.param())
	}()

	logger.Info("[Config] Nacos 配置监听已启动", zap.String("data_id", env.dataID), zap.String("group", env.group))
	return nil
}

// apply 解析新配置，补齐环境变量与默认值后原子替换并回调
func apply(ext string, data []byte, onChange func(oldCfg, newCfg *Config)) error {
	var next Config
	if err := parse(ext, data, &next); err != nil {
		return err
	}
	applyEnv(&next)
	applyDefaults(&next)

	prev := GetCurrent()
	SetCurrent(&next)
	if onChange != nil {
		onChange(prev, &next)
	}
	return nil
}
