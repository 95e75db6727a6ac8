package metadata

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"nftswap/internal/model"
)

// URIReader reads a token's metadata locator from the chain.
type URIReader interface {
	TokenURI(ctx context.Context, contract common.Address, tokenID *big.Int, standard model.Standard) (string, error)
}

// ContentFetcher retrieves a JSON document for a content URI.
type ContentFetcher interface {
	FetchJSON(ctx context.Context, uri string, out any) error
}

// State is the caller-visible snapshot for one token's metadata.
type State struct {
	Descriptor *model.Descriptor
	Loading    bool
	Err        error
}

type entry struct {
	uri        string
	inflight   string
	descriptor *model.Descriptor
	err        error
}

// Fetcher caches token descriptors by (contract, token id). Descriptors
// are immutable once fetched; a changed locator supersedes an in-flight
// fetch by discarding its result rather than cancelling the request.
type Fetcher struct {
	reader  URIReader
	content ContentFetcher
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

func NewFetcher(reader URIReader, content ContentFetcher, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		reader:  reader,
		content: content,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

func cacheKey(contract common.Address, tokenID *big.Int) string {
	return contract.Hex() + "_" + tokenID.String()
}

// Get returns the current state for a token, starting a background fetch
// when none has completed yet.
func (f *Fetcher) Get(ctx context.Context, contract common.Address, tokenID *big.Int, standard model.Standard) State {
	key := cacheKey(contract, tokenID)

	f.mu.Lock()
	e, ok := f.entries[key]
	if !ok {
		e = &entry{}
		f.entries[key] = e
	}
	if e.descriptor != nil || e.err != nil {
		state := State{Descriptor: e.descriptor, Loading: e.inflight != "", Err: e.err}
		f.mu.Unlock()
		return state
	}
	loading := e.inflight != ""
	f.mu.Unlock()

	if !loading {
		go f.fetch(ctx, contract, tokenID, standard)
	}
	return State{Loading: true}
}

// Load fetches the descriptor synchronously, returning the cached copy
// when one exists.
func (f *Fetcher) Load(ctx context.Context, contract common.Address, tokenID *big.Int, standard model.Standard) (*model.Descriptor, error) {
	key := cacheKey(contract, tokenID)

	f.mu.Lock()
	if e, ok := f.entries[key]; ok && e.descriptor != nil {
		descriptor := e.descriptor
		f.mu.Unlock()
		return descriptor, nil
	}
	f.mu.Unlock()

	f.fetch(ctx, contract, tokenID, standard)

	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.entries[key]
	if e == nil {
		return nil, nil
	}
	return e.descriptor, e.err
}

// fetch reads the locator and retrieves the descriptor. Exactly one
// fetch runs per (contract, token id, locator); a newer locator wins and
// the stale result is dropped when it settles.
func (f *Fetcher) fetch(ctx context.Context, contract common.Address, tokenID *big.Int, standard model.Standard) {
	key := cacheKey(contract, tokenID)

	uri, err := f.reader.TokenURI(ctx, contract, tokenID, standard)
	if err != nil {
		f.mu.Lock()
		e, ok := f.entries[key]
		if !ok {
			e = &entry{}
			f.entries[key] = e
		}
		e.err = err
		f.mu.Unlock()
		f.logger.Debug("token uri read failed",
			zap.String("contract", contract.Hex()),
			zap.String("token_id", tokenID.String()),
			zap.Error(err),
		)
		return
	}

	f.mu.Lock()
	e, ok := f.entries[key]
	if !ok {
		e = &entry{}
		f.entries[key] = e
	}
	if e.descriptor != nil && e.uri == uri {
		f.mu.Unlock()
		return
	}
	if e.inflight == uri {
		// Same locator already being fetched.
		f.mu.Unlock()
		return
	}
	e.inflight = uri
	f.mu.Unlock()

	var descriptor model.Descriptor
	fetchErr := f.content.FetchJSON(ctx, uri, &descriptor)

	f.mu.Lock()
	defer f.mu.Unlock()
	if e.inflight != uri {
		// Superseded by a newer locator; drop this result.
		return
	}
	e.inflight = ""
	if fetchErr != nil {
		e.err = fetchErr
		f.logger.Debug("metadata fetch failed",
			zap.String("contract", contract.Hex()),
			zap.String("token_id", tokenID.String()),
			zap.String("uri", uri),
			zap.Error(fetchErr),
		)
		return
	}
	e.uri = uri
	e.descriptor = &descriptor
	e.err = nil
}
