//go:build darwin

package evloop

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// maxFDLimit bounds dynamic growth of the registration slice.
const maxFDLimit = 100000000

type fdInfo struct {
	callback IOCallback
	events   IOEvents
	active   bool
}

// FastPoller manages I/O event registration using kqueue.
type FastPoller struct {
	kq       int32
	eventBuf [256]unix.Kevent_t
	fds      []fdInfo
	fdMu     sync.RWMutex
	closed   atomic.Bool
}

func (p *FastPoller) Init() error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = int32(kq)
	p.fds = make([]fdInfo, 1024)
	return nil
}

func (p *FastPoller) Close() error {
	p.closed.Store(true)
	if p.kq > 0 {
		return unix.Close(int(p.kq))
	}
	return nil
}

func (p *FastPoller) RegisterFD(fd int, events IOEvents, cb IOCallback) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	if fd < 0 || fd >= maxFDLimit {
		return ErrFDOutOfRange
	}

	p.fdMu.Lock()
	if fd >= len(p.fds) {
		newSize := fd*2 + 1
		if newSize > maxFDLimit {
			newSize = maxFDLimit + 1
		}
		grown := make([]fdInfo, newSize)
		copy(grown, p.fds)
		p.fds = grown
	}
	if p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDAlreadyRegistered
	}
	p.fds[fd] = fdInfo{callback: cb, events: events, active: true}
	p.fdMu.Unlock()

	kevents := eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE)
	if len(kevents) > 0 {
		if _, err := unix.Kevent(int(p.kq), kevents, nil, nil); err != nil {
			p.fdMu.Lock()
			p.fds[fd] = fdInfo{}
			p.fdMu.Unlock()
			return err
		}
	}
	return nil
}

func (p *FastPoller) UnregisterFD(fd int) error {
	if fd < 0 {
		return ErrFDOutOfRange
	}
	p.fdMu.Lock()
	if fd >= len(p.fds) || !p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDNotRegistered
	}
	events := p.fds[fd].events
	p.fds[fd] = fdInfo{}
	p.fdMu.Unlock()

	kevents := eventsToKevents(fd, events, unix.EV_DELETE)
	if len(kevents) > 0 {
		_, _ = unix.Kevent(int(p.kq), kevents, nil, nil)
	}
	return nil
}

func (p *FastPoller) ModifyFD(fd int, events IOEvents) error {
	if fd < 0 {
		return ErrFDOutOfRange
	}
	p.fdMu.Lock()
	if fd >= len(p.fds) || !p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDNotRegistered
	}
	oldEvents := p.fds[fd].events
	p.fds[fd].events = events
	p.fdMu.Unlock()

	if oldEvents&^events != 0 {
		if del := eventsToKevents(fd, oldEvents&^events, unix.EV_DELETE); len(del) > 0 {
			_, _ = unix.Kevent(int(p.kq), del, nil, nil)
		}
	}
	if events&^oldEvents != 0 {
		if add := eventsToKevents(fd, events&^oldEvents, unix.EV_ADD|unix.EV_ENABLE); len(add) > 0 {
			if _, err := unix.Kevent(int(p.kq), add, nil, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *FastPoller) PollIO(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrPollerClosed
	}

	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{Sec: int64(timeoutMs / 1000), Nsec: int64((timeoutMs % 1000) * 1000000)}
	}

	n, err := unix.Kevent(int(p.kq), nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	p.dispatchEvents(n)
	return n, nil
}

func (p *FastPoller) dispatchEvents(n int) {
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		if fd < 0 {
			continue
		}
		p.fdMu.RLock()
		var info fdInfo
		if fd < len(p.fds) {
			info = p.fds[fd]
		}
		p.fdMu.RUnlock()

		if info.active && info.callback != nil {
			info.callback(keventToEvents(&p.eventBuf[i]))
		}
	}
}

func eventsToKevents(fd int, events IOEvents, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if events&EventRead != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&EventWrite != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return kevents
}

func keventToEvents(kev *unix.Kevent_t) IOEvents {
	var events IOEvents
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= EventRead
	case unix.EVFILT_WRITE:
		events |= EventWrite
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		events |= EventError
	}
	if kev.Flags&unix.EV_EOF != 0 {
		events |= EventHangup
	}
	return events
}
