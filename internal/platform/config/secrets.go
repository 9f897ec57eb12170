package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSecretsDir is where secret volumes are mounted when API_SECRETS_DIR is unset.
const DefaultSecretsDir = "/var/run/secrets/storefront"

// FileSecretResolver resolves secret://<name> to the trimmed contents of <dir>/<name>, the layout
// Cloud Run and Kubernetes use for mounted secret volumes.
func FileSecretResolver(dir string) SecretResolver {
	root := filepath.Clean(strings.TrimSpace(dir))
	return SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		name := strings.Trim(strings.TrimPrefix(strings.TrimSpace(ref), "secret://"), "/")
		if name == "" {
			return "", errors.New("secret name is empty")
		}
		path := filepath.Join(root, filepath.FromSlash(name))
		if rel, err := filepath.Rel(root, path); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("secret %q escapes %s", name, root)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		value := strings.TrimSpace(string(data))
		if value == "" {
			return "", fmt.Errorf("secret %q is empty", name)
		}
		return value, nil
	})
}
