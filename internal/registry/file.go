package registry

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.beyond.io/tdi-ingest/internal/core"
	"golang.beyond.io/tdi-ingest/pkg/logx"
	"gopkg.in/yaml.v3"
)

// deviceFile is the layout of a YAML device file.
//
//	devices:
//	  - device_id: DEV1
//	    store_code: ST1
//	    region_id: R1
//	    organization_id: ORG1
type deviceFile struct {
	Devices []core.Device `yaml:"devices"`
}

// fileRegistry serves devices from a YAML file. The file is read again whenever its
// modification time changes, so devices can be added without a restart.
type fileRegistry struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	devices []core.Device
}

// NewFile loads the device file at path.
func NewFile(path string) (core.DeviceRegistry, error) {
	r := &fileRegistry{path: path}
	if _, err := r.snapshot(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *fileRegistry) Type() string {
	return TypeFile
}

// snapshot returns the current device list, reloading the file if it changed.
func (r *fileRegistry) snapshot() ([]core.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := os.Stat(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat device file: %w", err)
	}
	if r.devices != nil && info.ModTime().Equal(r.modTime) {
		return r.devices, nil
	}

	b, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device file: %w", err)
	}

	var f deviceFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse device file %s: %w", r.path, err)
	}
	if f.Devices == nil {
		f.Devices = []core.Device{}
	}

	r.devices = f.Devices
	r.modTime = info.ModTime()

	logx.As().Debug().
		Str("path", r.path).
		Int("devices", len(f.Devices)).
		Msg("Device file loaded")

	return r.devices, nil
}

func (r *fileRegistry) ExistsInStore(ctx context.Context, storeCode string, deviceID string) (bool, error) {
	devices, err := r.snapshot()
	if err != nil {
		return false, err
	}

	for _, d := range devices {
		if d.StoreCode == storeCode && d.DeviceID == deviceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fileRegistry) FindByID(ctx context.Context, deviceID string) (*core.Device, error) {
	devices, err := r.snapshot()
	if err != nil {
		return nil, err
	}

	for _, d := range devices {
		if d.DeviceID == deviceID {
			device := d
			return &device, nil
		}
	}
	return nil, core.ErrDeviceNotFound
}
