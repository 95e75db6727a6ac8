package metadata

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"nftswap/internal/model"
)

var nftAddr = common.HexToAddress("0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC")

type fakeReader struct {
	mu    sync.Mutex
	uri   string
	err   error
	calls int
}

func (f *fakeReader) TokenURI(context.Context, common.Address, *big.Int, model.Standard) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.uri, f.err
}

func (f *fakeReader) setURI(uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uri = uri
}

type fakeContent struct {
	mu    sync.Mutex
	docs  map[string]model.Descriptor
	calls int
}

func (f *fakeContent) FetchJSON(_ context.Context, uri string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	doc, ok := f.docs[uri]
	if !ok {
		return fmt.Errorf("not found: %s", uri)
	}
	*out.(*model.Descriptor) = doc
	return nil
}

func (f *fakeContent) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestLoadCachesDescriptor(t *testing.T) {
	reader := &fakeReader{uri: "ipfs://QmAbc"}
	content := &fakeContent{docs: map[string]model.Descriptor{
		"ipfs://QmAbc": {Name: "Token Five", Image: "ipfs://QmImg"},
	}}
	fetcher := NewFetcher(reader, content, nil)

	descriptor, err := fetcher.Load(context.Background(), nftAddr, big.NewInt(5), model.StandardUnique)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if descriptor == nil || descriptor.Name != "Token Five" {
		t.Fatalf("descriptor = %+v", descriptor)
	}

	// Second load for the same identity serves the cached copy.
	again, err := fetcher.Load(context.Background(), nftAddr, big.NewInt(5), model.StandardUnique)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if again != descriptor {
		t.Fatalf("expected the cached descriptor instance")
	}
	if content.callCount() != 1 {
		t.Fatalf("content fetched %d times, want 1", content.callCount())
	}
}

func TestLoadFetchFailure(t *testing.T) {
	reader := &fakeReader{uri: "ipfs://QmMissing"}
	content := &fakeContent{docs: map[string]model.Descriptor{}}
	fetcher := NewFetcher(reader, content, nil)

	descriptor, err := fetcher.Load(context.Background(), nftAddr, big.NewInt(5), model.StandardUnique)
	if err == nil {
		t.Fatalf("expected error")
	}
	if descriptor != nil {
		t.Fatalf("no partial descriptor on failure, got %+v", descriptor)
	}
}

func TestLoadReaderFailure(t *testing.T) {
	reader := &fakeReader{err: fmt.Errorf("contract call failed")}
	fetcher := NewFetcher(reader, &fakeContent{}, nil)

	descriptor, err := fetcher.Load(context.Background(), nftAddr, big.NewInt(5), model.StandardUnique)
	if err == nil {
		t.Fatalf("expected error")
	}
	if descriptor != nil {
		t.Fatalf("descriptor should stay nil, got %+v", descriptor)
	}
}

func TestChangedURISupersedes(t *testing.T) {
	reader := &fakeReader{uri: "ipfs://QmOld"}
	content := &fakeContent{docs: map[string]model.Descriptor{
		"ipfs://QmNew": {Name: "New"},
	}}
	fetcher := NewFetcher(reader, content, nil)

	// First load fails: the old locator has no document.
	if _, err := fetcher.Load(context.Background(), nftAddr, big.NewInt(5), model.StandardUnique); err == nil {
		t.Fatalf("expected failure for old locator")
	}

	// The locator changes; the next load picks up the new document.
	reader.setURI("ipfs://QmNew")
	descriptor, err := fetcher.Load(context.Background(), nftAddr, big.NewInt(5), model.StandardUnique)
	if err != nil {
		t.Fatalf("load after locator change: %v", err)
	}
	if descriptor == nil || descriptor.Name != "New" {
		t.Fatalf("descriptor = %+v, want New", descriptor)
	}
}

func TestGetReportsLoadingThenSettles(t *testing.T) {
	reader := &fakeReader{uri: "ipfs://QmAbc"}
	content := &fakeContent{docs: map[string]model.Descriptor{
		"ipfs://QmAbc": {Name: "Token Five"},
	}}
	fetcher := NewFetcher(reader, content, nil)

	state := fetcher.Get(context.Background(), nftAddr, big.NewInt(5), model.StandardUnique)
	if state.Descriptor != nil {
		t.Fatalf("first get should not have a descriptor yet")
	}
	if !state.Loading {
		t.Fatalf("first get should report loading")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		state = fetcher.Get(context.Background(), nftAddr, big.NewInt(5), model.StandardUnique)
		if state.Descriptor != nil || state.Err != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("fetch never settled")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if state.Err != nil {
		t.Fatalf("unexpected error: %v", state.Err)
	}
	if state.Descriptor.Name != "Token Five" {
		t.Fatalf("descriptor = %+v", state.Descriptor)
	}
}
