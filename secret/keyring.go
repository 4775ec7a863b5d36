package secret

import (
	"context"

	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
)

type KeyringResolverOptions struct {
	// Service 操作系统钥匙串里的服务名
	Service string `cfg:"service" def:"dbx"`
}

// KeyringResolver 从操作系统钥匙串读取凭据，
// 凭据引用即钥匙串里的用户名
type KeyringResolver struct {
	service string
}

func NewKeyringResolverWithOptions(options *KeyringResolverOptions) *KeyringResolver {
	if options == nil {
		options = &KeyringResolverOptions{}
	}
	service := options.Service
	if service == "" {
		service = "dbx"
	}
	return &KeyringResolver{service: service}
}

func (r *KeyringResolver) Resolve(ctx context.Context, ref string) (string, error) {
	value, err := keyring.Get(r.service, ref)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", errors.Wrapf(ErrSecretNotFound, "ref: %s", ref)
		}
		return "", errors.Wrapf(err, "keyring get failed. ref: %s", ref)
	}
	return value, nil
}

// Store 写入凭据，供连接录入流程使用
func (r *KeyringResolver) Store(ref string, value string) error {
	if err := keyring.Set(r.service, ref, value); err != nil {
		return errors.Wrapf(err, "keyring set failed. ref: %s", ref)
	}
	return nil
}

// Delete 删除凭据，连接删除时同步清理
func (r *KeyringResolver) Delete(ref string) error {
	err := keyring.Delete(r.service, ref)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return errors.Wrapf(err, "keyring delete failed. ref: %s", ref)
	}
	return nil
}
