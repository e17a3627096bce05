package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.beyond.io/tdi-ingest/internal/core"
	"golang.beyond.io/tdi-ingest/internal/retry"
	"golang.beyond.io/tdi-ingest/internal/transport"
)

const root = "/tdi"

func reportJSON(device string, site string, enters string) []byte {
	return []byte(fmt.Sprintf(`{"Metrics":{"@Devicename":"Door","@DeviceId":%q,"@SiteId":%q,`+
		`"ReportData":{"@Interval":"60","Report":{"@Date":"2024-11-18","Object":[{"@Name":"Door","@Id":"0",`+
		`"Count":[{"@StartTime":"10:00:00","@EndTime":"11:00:00","@Enters":%q,"@Exits":"3","@Status":"0"}]}]}}}}`,
		device, site, enters))
}

// memDrop is an in-memory drop directory shared by the sessions of a memTransport.
type memDrop struct {
	mu    sync.Mutex
	files map[string][]byte
	order []string
	dirs  map[string]bool

	openFailures map[string]int
	renameErr    map[string]error
	opens        map[string]int
}

func newMemDrop() *memDrop {
	return &memDrop{
		files:        map[string][]byte{},
		dirs:         map[string]bool{root: true},
		openFailures: map[string]int{},
		renameErr:    map[string]error{},
		opens:        map[string]int{},
	}
}

// put adds or replaces a file, keeping its listing position when it already exists.
func (d *memDrop) put(p string, content []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.files[p]; !ok {
		d.order = append(d.order, p)
	}
	d.files[p] = content
}

func (d *memDrop) has(p string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.files[p]
	return ok
}

func (d *memDrop) openCount(p string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens[p]
}

type memTransport struct {
	drop       *memDrop
	connectErr error
	listErr    error
	mkdirErr   error

	mu       sync.Mutex
	sessions []*memSession
}

func (t *memTransport) Type() string {
	return "mem"
}

func (t *memTransport) Connect(ctx context.Context) (core.Session, error) {
	if t.connectErr != nil {
		return nil, core.NewError(core.KindConnection, "dial", "mem", t.connectErr)
	}
	s := &memSession{t: t}
	t.mu.Lock()
	t.sessions = append(t.sessions, s)
	t.mu.Unlock()
	return s, nil
}

func (t *memTransport) allClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.sessions {
		if !s.closed {
			return false
		}
	}
	return true
}

type memSession struct {
	t      *memTransport
	closed bool
}

func (s *memSession) Info() string {
	return "mem://" + root
}

func (s *memSession) List(ctx context.Context, dir string) ([]core.Entry, error) {
	if s.t.listErr != nil {
		return nil, s.t.listErr
	}
	d := s.t.drop
	d.mu.Lock()
	defer d.mu.Unlock()

	var entries []core.Entry
	var subdirs []string
	for p := range d.dirs {
		if path.Dir(p) == dir && p != dir {
			subdirs = append(subdirs, p)
		}
	}
	sort.Strings(subdirs)
	for _, p := range subdirs {
		entries = append(entries, core.Entry{Name: path.Base(p), Path: p, IsDir: true})
	}
	for _, p := range d.order {
		if content, ok := d.files[p]; ok && path.Dir(p) == dir {
			entries = append(entries, core.Entry{Name: path.Base(p), Path: p, Size: int64(len(content))})
		}
	}
	return entries, nil
}

func (s *memSession) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	d := s.t.drop
	d.mu.Lock()
	defer d.mu.Unlock()

	d.opens[p]++
	if d.openFailures[p] > 0 {
		d.openFailures[p]--
		return nil, errors.New("425 can't open data connection")
	}
	content, ok := d.files[p]
	if !ok {
		return nil, errors.New("550 no such file")
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *memSession) Rename(ctx context.Context, src string, dst string) error {
	d := s.t.drop
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.renameErr[src]; err != nil {
		return err
	}
	content, ok := d.files[src]
	if !ok {
		return errors.New("550 no such file")
	}
	if !d.dirs[path.Dir(dst)] {
		return errors.New("550 target directory does not exist")
	}
	delete(d.files, src)
	d.order = slices.DeleteFunc(d.order, func(p string) bool { return p == src })
	if _, exists := d.files[dst]; !exists {
		d.order = append(d.order, dst)
	}
	d.files[dst] = content
	return nil
}

func (s *memSession) MakeDir(ctx context.Context, dir string) error {
	if s.t.mkdirErr != nil {
		return s.t.mkdirErr
	}
	d := s.t.drop
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirs[dir] = true
	return nil
}

func (s *memSession) Close() error {
	s.closed = true
	return nil
}

type memRegistry struct {
	devices   []core.Device
	existsErr error
	findErr   error
	lookups   int
}

func (r *memRegistry) Type() string {
	return "mem"
}

func (r *memRegistry) ExistsInStore(ctx context.Context, storeCode string, deviceID string) (bool, error) {
	r.lookups++
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, d := range r.devices {
		if d.StoreCode == storeCode && d.DeviceID == deviceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRegistry) FindByID(ctx context.Context, deviceID string) (*core.Device, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, d := range r.devices {
		if d.DeviceID == deviceID {
			device := d
			return &device, nil
		}
	}
	return nil, core.ErrDeviceNotFound
}

type memStore struct {
	mu       sync.Mutex
	records  map[string]*core.EnrichedRecord
	upserts  int
	failures int
}

func newMemStore() *memStore {
	return &memStore{records: map[string]*core.EnrichedRecord{}}
}

func (s *memStore) Type() string {
	return "mem"
}

func (s *memStore) Upsert(ctx context.Context, digest string, record *core.EnrichedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.failures > 0 {
		s.failures--
		return errors.New("write concern error")
	}
	s.records[digest] = record
	return nil
}

func (s *memStore) Close(ctx context.Context) error {
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// waitRecorder replaces the retry wait and records the requested delays instead of sleeping.
type waitRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *waitRecorder) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.waits = append(w.waits, d)
	w.mu.Unlock()
	return ctx.Err()
}

func (w *waitRecorder) total() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	var sum time.Duration
	for _, d := range w.waits {
		sum += d
	}
	return sum
}

type fixture struct {
	drop      *memDrop
	transport *memTransport
	registry  *memRegistry
	store     *memStore
	waits     *waitRecorder
	opts      Options
}

func newFixture() *fixture {
	drop := newMemDrop()
	f := &fixture{
		drop:      drop,
		transport: &memTransport{drop: drop},
		registry: &memRegistry{devices: []core.Device{
			{DeviceID: "DEV1", StoreCode: "ST1", RegionID: "R1", OrganizationID: "ORG1"},
			{DeviceID: "DEV3", StoreCode: "ST1", RegionID: "R1", OrganizationID: "ORG1"},
			{DeviceID: "DEV4", StoreCode: "ST1", RegionID: "R1", OrganizationID: "ORG1"},
			{DeviceID: "DEV5", StoreCode: "ST1", RegionID: "R1", OrganizationID: "ORG1"},
		}},
		store: newMemStore(),
		waits: &waitRecorder{},
	}

	lister, err := transport.NewLister("*.json")
	if err != nil {
		panic(err)
	}

	f.opts = Options{
		Name:         "test",
		Root:         root,
		Transport:    f.transport,
		Lister:       lister,
		Registry:     f.registry,
		Store:        f.store,
		Retrier:      retry.New(3, retry.FixedDelay{Interval: 2 * time.Second}, retry.WithWait(f.waits.wait)),
		ProcessedDir: "Processed",
		ErrorDir:     "Error",
	}
	return f
}

func (f *fixture) orchestrator() *Orchestrator {
	o, err := New(f.opts)
	if err != nil {
		panic(err)
	}
	o.now = func() time.Time { return time.Date(2024, 11, 18, 12, 0, 0, 0, time.UTC) }
	return o
}
