package secrets

import (
	"os"
	"strings"
	"sync"

	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// Accessor returns credentials for model-backed guardrails by service name.
//
// A missing credential is reported as a distinguishable CREDENTIAL_UNAVAILABLE
// error rather than a raw transport failure. The accessor is constructed and
// owned by the front end and passed in explicitly; the guardrail core holds
// no global key state.
type Accessor interface {
	Get(service string) (string, error)
}

// EnvAccessor resolves credentials from environment variables named
// <SERVICE>_API_KEY (service upper-cased, dashes mapped to underscores).
type EnvAccessor struct{}

// Get returns the credential for the named service.
func (EnvAccessor) Get(service string) (string, error) {
	key := strings.ToUpper(strings.ReplaceAll(service, "-", "_")) + "_API_KEY"
	value := os.Getenv(key)
	if value == "" {
		return "", types.NewError(types.CREDENTIAL_UNAVAILABLE,
			"no credential for service "+service+" (set "+key+")")
	}
	return value, nil
}

// StaticAccessor resolves credentials from a fixed in-memory map. Intended
// for tests and embedded deployments.
type StaticAccessor struct {
	mu    sync.RWMutex
	creds map[string]string
}

// NewStaticAccessor creates a StaticAccessor over a copy of creds.
func NewStaticAccessor(creds map[string]string) *StaticAccessor {
	copied := make(map[string]string, len(creds))
	for k, v := range creds {
		copied[k] = v
	}
	return &StaticAccessor{creds: copied}
}

// Get returns the credential for the named service.
func (s *StaticAccessor) Get(service string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.creds[service]
	if !ok || value == "" {
		return "", types.NewError(types.CREDENTIAL_UNAVAILABLE,
			"no credential for service "+service)
	}
	return value, nil
}

// Set adds or replaces a credential.
func (s *StaticAccessor) Set(service, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[service] = value
}
