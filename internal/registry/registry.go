package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"winfp/internal/winbio"
)

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("registry key not found")
	// ErrUnsupportedPlatform is returned where no registry exists.
	ErrUnsupportedPlatform = errors.New("registry access requires Windows")
)

const (
	enumRoot = `SYSTEM\CurrentControlSet\Enum`
	// Sensors expose at most this many WinBio configurations.
	maxConfigurations = 3
)

// Reader is the raw HKLM access the Store is built on. Values renders
// integer values in decimal and multi-strings joined by ";".
type Reader interface {
	Values(path string) (map[string]string, error)
	Subkeys(path string) ([]string, error)
	DeleteTree(path string) error
}

// DatabaseKeyPath returns the key of one database under root. id may be in
// any letter case, with or without braces; the key always uses the canonical
// braced uppercase form.
func DatabaseKeyPath(root, id string) (string, error) {
	guid, err := winbio.ParseGUID(id)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(root, `\`) + `\` + guid.String(), nil
}

// Store resolves service database keys and sensor configuration links.
type Store struct {
	r            Reader
	databasesKey string
}

// NewStore returns a Store rooted at databasesKey, normally
// SYSTEM\CurrentControlSet\Services\WbioSrvc\Databases.
func NewStore(r Reader, databasesKey string) *Store {
	return &Store{r: r, databasesKey: databasesKey}
}

// DeleteDatabase removes the key of one database and everything below it.
// It returns ErrNotFound when the key is already gone.
func (s *Store) DeleteDatabase(id winbio.GUID) error {
	path, err := DatabaseKeyPath(s.databasesKey, id.String())
	if err != nil {
		return err
	}
	if err := s.r.DeleteTree(path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// DatabaseEntry holds the values stored for one database.
type DatabaseEntry struct {
	Path   string
	Values map[string]string
}

// Lookup returns value or "" when absent.
func (e DatabaseEntry) Lookup(name string) string {
	return e.Values[name]
}

// DatabaseValues reads the values of one database key.
func (s *Store) DatabaseValues(id winbio.GUID) (DatabaseEntry, error) {
	path, err := DatabaseKeyPath(s.databasesKey, id.String())
	if err != nil {
		return DatabaseEntry{}, err
	}
	values, err := s.r.Values(path)
	if err != nil {
		return DatabaseEntry{Path: path}, fmt.Errorf("read %s: %w", path, err)
	}
	return DatabaseEntry{Path: path, Values: values}, nil
}

// RegisteredDatabases lists the database ids with a key under the root.
// Subkeys that are not GUIDs are skipped.
func (s *Store) RegisteredDatabases() ([]winbio.GUID, error) {
	names, err := s.r.Subkeys(s.databasesKey)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.databasesKey, err)
	}
	ids := make([]winbio.GUID, 0, len(names))
	for _, name := range names {
		id, err := winbio.ParseGUID(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SensorLink is one sensor configuration that references a database.
type SensorLink struct {
	// Unit is zero for sensors that are registered but not active.
	Unit             winbio.UnitID
	Active           bool
	Description      string
	Manufacturer     string
	Model            string
	DeviceInstanceID string
	ConfigIndex      int
	EngineAdapter    string
	StorageAdapter   string
	SensorMode       string
	VirtualSecure    bool
}

// SensorLinks maps canonical database ids to the sensor configurations that
// use them. Active units are read first; a scan of USB device keys then adds
// sensors that are configured but not currently enumerated.
func (s *Store) SensorLinks(units []winbio.UnitSchema) (map[string][]SensorLink, error) {
	links := map[string][]SensorLink{}
	seen := map[string]struct{}{}

	for _, unit := range units {
		seen[strings.ToUpper(unit.DeviceInstanceID)] = struct{}{}
		base := SensorLink{
			Unit:             unit.UnitID,
			Active:           true,
			Description:      unit.Description,
			Manufacturer:     unit.Manufacturer,
			Model:            unit.Model,
			DeviceInstanceID: unit.DeviceInstanceID,
		}
		s.readConfigurations(base, links)
	}

	usbRoot := enumRoot + `\USB`
	vidPids, err := s.r.Subkeys(usbRoot)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return links, nil
		}
		return links, fmt.Errorf("list %s: %w", usbRoot, err)
	}
	for _, vidPid := range vidPids {
		serials, err := s.r.Subkeys(usbRoot + `\` + vidPid)
		if err != nil {
			continue
		}
		for _, serial := range serials {
			instance := `USB\` + vidPid + `\` + serial
			if _, ok := seen[strings.ToUpper(instance)]; ok {
				continue
			}
			if _, err := s.r.Subkeys(configurationsKey(instance)); err != nil {
				continue
			}
			name := s.friendlyName(instance)
			if name == "" {
				name = instance
			}
			s.readConfigurations(SensorLink{Description: name, DeviceInstanceID: instance}, links)
		}
	}

	for id := range links {
		sort.SliceStable(links[id], func(i, j int) bool {
			return links[id][i].Active && !links[id][j].Active
		})
	}
	return links, nil
}

func (s *Store) readConfigurations(base SensorLink, links map[string][]SensorLink) {
	for idx := 0; idx < maxConfigurations; idx++ {
		values, err := s.r.Values(fmt.Sprintf(`%s\%d`, configurationsKey(base.DeviceInstanceID), idx))
		if err != nil {
			continue
		}
		dbID, ok := values["DatabaseId"]
		if !ok {
			continue
		}
		key, err := canonicalID(dbID)
		if err != nil {
			continue
		}
		link := base
		link.ConfigIndex = idx
		link.EngineAdapter = values["EngineAdapterBinary"]
		link.StorageAdapter = values["StorageAdapterBinary"]
		link.SensorMode = sensorModeName(values["SensorMode"])
		link.VirtualSecure = values["VirtualSecureMode"] == "1"
		links[key] = append(links[key], link)
	}
}

// friendlyName strips the driver store prefix ("@oem26.inf,%desc%;Name").
func (s *Store) friendlyName(instance string) string {
	values, err := s.r.Values(enumRoot + `\` + instance)
	if err != nil {
		return ""
	}
	name := values["FriendlyName"]
	if name == "" {
		name = values["DeviceDesc"]
	}
	if i := strings.LastIndex(name, ";"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func configurationsKey(instance string) string {
	return enumRoot + `\` + instance + `\Device Parameters\WinBio\Configurations`
}

func canonicalID(raw string) (string, error) {
	guid, err := winbio.ParseGUID(raw)
	if err != nil {
		return "", err
	}
	return guid.String(), nil
}

func sensorModeName(v string) string {
	switch v {
	case "1":
		return "Basic"
	case "2":
		return "Advanced"
	default:
		return fmt.Sprintf("Unknown (%s)", v)
	}
}

// DescribeValue renders well-known database values for display.
func DescribeValue(name, value string) string {
	switch name + "=" + value {
	case "BiometricType=8":
		return "Fingerprint (0x08)"
	case "SensorPool=1":
		return "System (1)"
	case "SensorPool=2":
		return "Private (2)"
	case "AutoCreate=1", "AutoName=1":
		return "Yes"
	case "AutoCreate=0", "AutoName=0":
		return "No"
	}
	return value
}
