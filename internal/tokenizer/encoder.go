package tokenizer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// ErrEncoderFailure wraps any failure of an exact encoder, including panics.
var ErrEncoderFailure = errors.New("tokenizer: encoder failure")

// Encoder counts tokens exactly for one tokenizer.
type Encoder interface {
	Count(text string) (int, error)
}

// Registry maps provider display names to exact encoders.
type Registry struct {
	mu       sync.RWMutex
	encoders map[string]Encoder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{encoders: make(map[string]Encoder)}
}

// Register adds an encoder for a provider, replacing any existing one.
func (r *Registry) Register(provider string, enc Encoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encoders[provider] = enc
}

// Lookup returns the exact encoder for a provider, if any.
func (r *Registry) Lookup(provider string) (Encoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	enc, ok := r.encoders[provider]
	return enc, ok
}

// Providers returns the providers with an exact encoder, sorted.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.encoders))
	for name := range r.encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

func init() {
	defaultRegistry.Register("OpenAI", NewTiktoken("cl100k_base"))
}

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register adds an encoder to the process-wide registry.
func Register(provider string, enc Encoder) { defaultRegistry.Register(provider, enc) }

// Lookup returns an encoder from the process-wide registry.
func Lookup(provider string) (Encoder, bool) { return defaultRegistry.Lookup(provider) }

var loaderOnce sync.Once

// Tiktoken counts tokens with a tiktoken BPE encoding. The encoding is loaded
// from ranks compiled into the binary on first use, so no network access is
// needed.
type Tiktoken struct {
	encoding string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTiktoken creates an encoder for a tiktoken encoding name such as "cl100k_base".
func NewTiktoken(encoding string) *Tiktoken {
	return &Tiktoken{encoding: encoding}
}

func (t *Tiktoken) load() error {
	t.once.Do(func() {
		loaderOnce.Do(func() {
			tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		})
		t.enc, t.err = tiktoken.GetEncoding(t.encoding)
	})
	return t.err
}

// Count returns the number of tokens in text. Panics inside the encoder are
// converted to errors.
func (t *Tiktoken) Count(text string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: %s: %v", ErrEncoderFailure, t.encoding, r)
		}
	}()

	if err := t.load(); err != nil {
		return 0, fmt.Errorf("%w: loading %s: %v", ErrEncoderFailure, t.encoding, err)
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}
