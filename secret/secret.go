// Package secret 把凭据引用解析为明文凭据
//
// 连接配置里只保存不透明的凭据引用，明文从解析器获取，
// 避免明文凭据落盘到配置文件。
package secret

import (
	"context"

	"github.com/pkg/errors"
)

var ErrSecretNotFound = errors.New("secret not found")

// Resolver 凭据解析接口
type Resolver interface {
	// Resolve 按引用解析明文凭据，引用不存在时返回 ErrSecretNotFound
	Resolve(ctx context.Context, ref string) (string, error)
}

type StaticResolverOptions struct {
	// Secrets 引用到明文的映射
	Secrets map[string]string `cfg:"secrets"`
}

// StaticResolver 内存映射解析器，用于测试和本地一次性任务
type StaticResolver struct {
	secrets map[string]string
}

func NewStaticResolverWithOptions(options *StaticResolverOptions) *StaticResolver {
	if options == nil {
		options = &StaticResolverOptions{}
	}
	return &StaticResolver{secrets: options.Secrets}
}

func (r *StaticResolver) Resolve(ctx context.Context, ref string) (string, error) {
	value, ok := r.secrets[ref]
	if !ok {
		return "", errors.Wrapf(ErrSecretNotFound, "ref: %s", ref)
	}
	return value, nil
}
