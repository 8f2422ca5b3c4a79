//go:build windows

package registry

import (
	"errors"
	"strconv"
	"strings"

	"golang.org/x/sys/windows/registry"
)

type systemReader struct{}

// NewSystemReader returns a Reader over HKEY_LOCAL_MACHINE.
func NewSystemReader() Reader { return systemReader{} }

func open(path string, access uint32) (registry.Key, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, access)
	if errors.Is(err, registry.ErrNotExist) {
		return 0, ErrNotFound
	}
	return k, err
}

func (systemReader) Values(path string) (map[string]string, error) {
	k, err := open(path, registry.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer k.Close()

	names, err := k.ReadValueNames(-1)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(names))
	for _, name := range names {
		if v, ok := readValue(k, name); ok {
			values[name] = v
		}
	}
	return values, nil
}

func readValue(k registry.Key, name string) (string, bool) {
	if n, _, err := k.GetIntegerValue(name); err == nil {
		return strconv.FormatUint(n, 10), true
	}
	if s, _, err := k.GetStringValue(name); err == nil {
		return s, true
	}
	if list, _, err := k.GetStringsValue(name); err == nil {
		return strings.Join(list, ";"), true
	}
	return "", false
}

func (systemReader) Subkeys(path string) ([]string, error) {
	k, err := open(path, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return nil, err
	}
	defer k.Close()
	return k.ReadSubKeyNames(-1)
}

func (systemReader) DeleteTree(path string) error {
	i := strings.LastIndex(path, `\`)
	if i < 0 {
		return errors.New("refusing to delete a root key")
	}
	parent, err := open(path[:i], registry.ENUMERATE_SUB_KEYS|registry.QUERY_VALUE)
	if err != nil {
		return err
	}
	defer parent.Close()
	return deleteTree(parent, path[i+1:])
}

// deleteTree removes name and its subkeys depth first; DeleteKey only
// removes leaf keys.
func deleteTree(parent registry.Key, name string) error {
	k, err := registry.OpenKey(parent, name, registry.ENUMERATE_SUB_KEYS|registry.QUERY_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	children, err := k.ReadSubKeyNames(-1)
	if err != nil {
		k.Close()
		return err
	}
	for _, child := range children {
		if err := deleteTree(k, child); err != nil && !errors.Is(err, ErrNotFound) {
			k.Close()
			return err
		}
	}
	k.Close()
	return registry.DeleteKey(parent, name)
}
