package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	. "github.com/onsi/gomega"

	"github.com/papercomputeco/yearbook/pkg/journal"
	"github.com/papercomputeco/yearbook/pkg/kv/inmemory"
	"github.com/papercomputeco/yearbook/pkg/logger"
	"github.com/papercomputeco/yearbook/pkg/media"
	"github.com/papercomputeco/yearbook/pkg/storage"
	"github.com/papercomputeco/yearbook/pkg/storage/local"
	testutils "github.com/papercomputeco/yearbook/pkg/utils/test"
)

// fixture is a server over an in-memory local backing with mock media.
type fixture struct {
	server   *Server
	svc      *journal.Service
	uploader *testutils.MockUploader
	events   *testutils.MockSink
}

func newFixture(config Config, driver storage.Driver) *fixture {
	if driver == nil {
		driver = local.NewDriver(inmemory.NewStore(), logger.Nop())
	}

	f := &fixture{
		uploader: testutils.NewMockUploader(),
		events:   testutils.NewMockSink(),
	}
	f.svc = journal.New(journal.Config{
		Driver:   driver,
		Pipeline: media.NewPipeline(f.uploader, logger.Nop()),
		Resolver: media.NewResolver(testutils.MockLocator{}, logger.Nop()),
		Events:   f.events,
		Logger:   logger.Nop(),
	})

	var err error
	f.server, err = NewServer(config, f.svc, logger.Nop())
	Expect(err).NotTo(HaveOccurred())
	return f
}

func (f *fixture) do(req *http.Request) *http.Response {
	resp, err := f.server.app.Test(req)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func decodeBody(resp *http.Response, v any) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(body, v)).To(Succeed(), string(body))
}

// remoteDriver wraps a local driver but reports the remote backing and
// captures the live-update callback so tests can push changes.
type remoteDriver struct {
	storage.Driver

	mu           sync.Mutex
	fn           func(storage.Change)
	filter       *storage.Equals
	unsubscribed bool
}

func newRemoteDriver() *remoteDriver {
	return &remoteDriver{Driver: local.NewDriver(inmemory.NewStore(), logger.Nop())}
}

func (d *remoteDriver) Backing() storage.Backing { return storage.BackingRemote }

func (d *remoteDriver) Subscribe(_ context.Context, _ string, filter *storage.Equals, fn func(storage.Change)) (storage.Subscription, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fn = fn
	d.filter = filter
	return d, nil
}

func (d *remoteDriver) Unsubscribe() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unsubscribed = true
	return nil
}

func (d *remoteDriver) subscribed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}

func (d *remoteDriver) isUnsubscribed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unsubscribed
}

func (d *remoteDriver) fire(ch storage.Change) {
	d.mu.Lock()
	fn := d.fn
	d.mu.Unlock()
	fn(ch)
}
