//go:build windows

package focus

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procRegisterClassExW    = user32.NewProc("RegisterClassExW")
	procCreateWindowExW     = user32.NewProc("CreateWindowExW")
	procDefWindowProcW      = user32.NewProc("DefWindowProcW")
	procShowWindow          = user32.NewProc("ShowWindow")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procPostMessageW        = user32.NewProc("PostMessageW")
	procDestroyWindow       = user32.NewProc("DestroyWindow")
	procGetModuleHandleW    = kernel32.NewProc("GetModuleHandleW")
)

const (
	wmQuit             = 0x0012
	swHide             = 0
	swShow             = 5
	wsOverlappedWindow = 0x00CF0000
	cwUseDefault       = 0x80000000
)

type wndClassEx struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   windows.Handle
	Icon       windows.Handle
	Cursor     windows.Handle
	Background windows.Handle
	MenuName   *uint16
	ClassName  *uint16
	IconSm     windows.Handle
}

type point struct{ X, Y int32 }

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
	Private uint32
}

var (
	classOnce sync.Once
	className *uint16
	instance  uintptr
	classErr  error
)

// The window class and its callback are process-wide; callbacks created with
// NewCallback are never freed.
func registerClass() error {
	classOnce.Do(func() {
		className, classErr = windows.UTF16PtrFromString("WinFPFocusWindow")
		if classErr != nil {
			return
		}
		instance, _, _ = procGetModuleHandleW.Call(0)
		wc := wndClassEx{
			WndProc: windows.NewCallback(func(hwnd, m, wparam, lparam uintptr) uintptr {
				r, _, _ := procDefWindowProcW.Call(hwnd, m, wparam, lparam)
				return r
			}),
			Instance:  windows.Handle(instance),
			ClassName: className,
		}
		wc.Size = uint32(unsafe.Sizeof(wc))
		if atom, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); atom == 0 {
			classErr = fmt.Errorf("RegisterClassExW: %w", err)
		}
	})
	return classErr
}

type systemHost struct{}

// NewSystemHost returns the user32 window host.
func NewSystemHost() Host { return systemHost{} }

func (systemHost) CreateWindow() (Handle, error) {
	if err := registerClass(); err != nil {
		return 0, err
	}
	title, err := windows.UTF16PtrFromString("winfp")
	if err != nil {
		return 0, err
	}
	hwnd, _, callErr := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(title)),
		wsOverlappedWindow,
		cwUseDefault, cwUseDefault, 1, 1,
		0, 0, instance, 0,
	)
	if hwnd == 0 {
		return 0, fmt.Errorf("CreateWindowExW: %w", callErr)
	}
	// Briefly shown so the foreground request is honoured, then hidden.
	procShowWindow.Call(hwnd, swShow)
	procSetForegroundWindow.Call(hwnd)
	procShowWindow.Call(hwnd, swHide)
	return Handle(hwnd), nil
}

func (systemHost) Pump(h Handle) {
	var m msg
	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		// 0 is WM_QUIT, -1 is an error; both end the loop.
		if int32(r) <= 0 {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
	procDestroyWindow.Call(uintptr(h))
}

func (systemHost) PostQuit(h Handle) error {
	if r, _, err := procPostMessageW.Call(uintptr(h), wmQuit, 0, 0); r == 0 {
		return fmt.Errorf("PostMessageW: %w", err)
	}
	return nil
}
