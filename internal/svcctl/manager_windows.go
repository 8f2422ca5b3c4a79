//go:build windows

package svcctl

import (
	"fmt"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

type systemOpener struct{}

// NewSystemOpener returns an Opener backed by the service control manager.
func NewSystemOpener() Opener { return systemOpener{} }

// Open connects with SC_MANAGER_CONNECT only and opens the service with the
// minimal rights for access, so status queries work without elevation.
func (systemOpener) Open(name string, access Access) (Service, error) {
	scm, err := windows.OpenSCManager(nil, nil, windows.SC_MANAGER_CONNECT)
	if err != nil {
		return nil, fmt.Errorf("open service manager: %w", err)
	}
	m := &mgr.Mgr{Handle: scm}
	defer m.Disconnect()

	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	rights := uint32(windows.SERVICE_QUERY_STATUS | windows.SERVICE_QUERY_CONFIG)
	if access == AccessControl {
		rights |= windows.SERVICE_START | windows.SERVICE_STOP
	}
	h, err := windows.OpenService(scm, namePtr, rights)
	if err != nil {
		return nil, fmt.Errorf("open service %s: %w", name, err)
	}
	return &systemService{s: &mgr.Service{Name: name, Handle: h}}, nil
}

type systemService struct {
	s *mgr.Service
}

func (w *systemService) Query() (State, error) {
	st, err := w.s.Query()
	if err != nil {
		return 0, err
	}
	return State(st.State), nil
}

func (w *systemService) Stop() error {
	_, err := w.s.Control(svc.Stop)
	return err
}

func (w *systemService) Start() error {
	return w.s.Start()
}

func (w *systemService) Config() (Config, error) {
	c, err := w.s.Config()
	if err != nil {
		return Config{}, err
	}
	return Config{
		DisplayName: c.DisplayName,
		StartType:   startTypeName(c.StartType),
		BinaryPath:  c.BinaryPathName,
		Account:     c.ServiceStartName,
	}, nil
}

func (w *systemService) Close() error {
	return w.s.Close()
}

func startTypeName(t uint32) string {
	switch t {
	case mgr.StartAutomatic:
		return "automatic"
	case mgr.StartManual:
		return "manual"
	case mgr.StartDisabled:
		return "disabled"
	case windows.SERVICE_BOOT_START:
		return "boot"
	case windows.SERVICE_SYSTEM_START:
		return "system"
	default:
		return fmt.Sprintf("unknown (%d)", t)
	}
}
