package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/yearbook/pkg/media"
)

// MockUploader is a media.Uploader that records calls and answers with refs
// named after the uploaded files ("ref-<name>").
type MockUploader struct {
	mu sync.Mutex

	// Calls counts every send, whatever the method.
	Calls int

	// Texts holds every text-only message sent.
	Texts []string

	// Captions holds the caption of every single-file send.
	Captions []string

	// Err, when set, fails every send.
	Err error
}

func NewMockUploader() *MockUploader {
	return &MockUploader{}
}

func (u *MockUploader) SendMessage(_ context.Context, text string) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Calls++
	if u.Err != nil {
		return 0, u.Err
	}
	u.Texts = append(u.Texts, text)
	return 1, nil
}

func (u *MockUploader) SendMedia(_ context.Context, f media.File, caption string) (int64, media.Ref, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Calls++
	if u.Err != nil {
		return 0, media.Ref{}, u.Err
	}
	u.Captions = append(u.Captions, caption)
	return 2, media.Ref{Kind: f.Kind(), FileID: "ref-" + f.Name}, nil
}

func (u *MockUploader) SendMediaGroup(_ context.Context, items []media.GroupItem) (int64, []media.Ref, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Calls++
	if u.Err != nil {
		return 0, nil, u.Err
	}
	refs := make([]media.Ref, len(items))
	for i, it := range items {
		refs[i] = media.Ref{Kind: it.File.Kind(), FileID: "ref-" + it.File.Name}
	}
	return 3, refs, nil
}

// CallCount returns Calls under the lock.
func (u *MockUploader) CallCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.Calls
}

// GoneRef is the one reference MockLocator refuses to resolve.
const GoneRef = "ref-gone"

// MockLocator resolves every reference except GoneRef to
// https://cdn.example/files/<ref>.
type MockLocator struct{}

func (MockLocator) GetFile(_ context.Context, id string) (string, error) {
	if id == GoneRef {
		return "", &media.ProviderError{Method: "getFile", Code: 400, Description: "Bad Request: invalid file_id"}
	}
	return "files/" + id, nil
}

func (MockLocator) FileURL(path string) string { return "https://cdn.example/" + path }

// Photo and Video build in-memory files with a fixed content type.
func Photo(name string) media.File { return media.FileFromBytes(name, "image/jpeg", []byte(name)) }
func Video(name string) media.File { return media.FileFromBytes(name, "video/mp4", []byte(name)) }
