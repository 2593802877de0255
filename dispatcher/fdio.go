// File: dispatcher/fdio.go
// Author: momentics <momentics@gmail.com>
//
// Fdio: persistent read and write readiness callbacks on one descriptor,
// built on generic descriptor callbacks.

package dispatcher

import (
	"github.com/momentics/hioload-dispatch/api"
)

// FdioCallback services a ready Fdio.
type FdioCallback func(io *Fdio, userData any)

// Fdio watches one descriptor for reading and writing. Callbacks are
// level-triggered and stay armed until replaced, cleared or destroyed.
type Fdio struct {
	d      *Dispatcher
	fd     int
	handle api.FDHandle

	readCB    FdioCallback
	readData  any
	writeCB   FdioCallback
	writeData any

	readReady  bool
	writeReady bool
	destroyed  bool
}

// CreateFdio registers an Fdio for fd with no callbacks armed.
func (d *Dispatcher) CreateFdio(fd int) (*Fdio, error) {
	const op = "CreateFdio"
	if err := d.accepting(op); err != nil {
		return nil, err
	}
	if err := d.checkDescriptor(op, fd); err != nil {
		return nil, err
	}
	io := &Fdio{d: d, fd: fd}
	h, err := d.AddDescriptorCallback(io.query, io.check, io.dispatch, nil)
	if err != nil {
		return nil, err
	}
	io.handle = h
	return io, nil
}

// FD returns the watched descriptor.
func (io *Fdio) FD() int { return io.fd }

// SetReadCallback arms cb for readability; nil disarms it.
func (io *Fdio) SetReadCallback(cb FdioCallback, userData any) error {
	if io.destroyed {
		return io.d.reject(api.ErrCodeDestroyed, "Fdio.SetReadCallback", "fdio destroyed")
	}
	io.readCB, io.readData = cb, userData
	return nil
}

// SetWriteCallback arms cb for writability; nil disarms it.
func (io *Fdio) SetWriteCallback(cb FdioCallback, userData any) error {
	if io.destroyed {
		return io.d.reject(api.ErrCodeDestroyed, "Fdio.SetWriteCallback", "fdio destroyed")
	}
	io.writeCB, io.writeData = cb, userData
	return nil
}

// Destroy unregisters the Fdio. It may be called from its own callbacks.
func (io *Fdio) Destroy() error {
	if io.destroyed {
		return io.d.reject(api.ErrCodeDestroyed, "Fdio.Destroy", "fdio destroyed")
	}
	io.destroyed = true
	io.readCB, io.readData, io.writeCB, io.writeData = nil, nil, nil, nil
	if io.d.destroyed {
		return nil
	}
	return io.d.RemoveFileDescriptorHandler(io.handle)
}

func (io *Fdio) query(set *api.DescriptorSet, _ any) {
	if io.readCB != nil {
		set.Read.Set(io.fd)
	}
	if io.writeCB != nil {
		set.Write.Set(io.fd)
	}
}

func (io *Fdio) check(set *api.DescriptorSet, _ any) bool {
	io.readReady = io.readCB != nil && set.Read.IsSet(io.fd)
	io.writeReady = io.writeCB != nil && set.Write.IsSet(io.fd)
	return io.readReady || io.writeReady
}

func (io *Fdio) dispatch(_ any) {
	readReady, writeReady := io.readReady, io.writeReady
	io.readReady, io.writeReady = false, false
	if readReady && io.readCB != nil {
		io.readCB(io, io.readData)
	}
	if writeReady && io.writeCB != nil && !io.destroyed {
		io.writeCB(io, io.writeData)
	}
}
