//go:build !linux && !darwin

package evloop

// FastPoller is unimplemented outside Linux/Darwin: twemproxy itself only
// ever shipped epoll and kqueue backends (see original_source's
// NC_HAVE_EPOLL/NC_HAVE_KQUEUE split in nc_event.h), and this proxy keeps
// that same scope rather than adding a third poll backend nothing in the
// spec calls for.
type FastPoller struct{}

func (p *FastPoller) Init() error                                    { return ErrPollerClosed }
func (p *FastPoller) Close() error                                   { return nil }
func (p *FastPoller) RegisterFD(fd int, events IOEvents, cb IOCallback) error { return ErrPollerClosed }
func (p *FastPoller) UnregisterFD(fd int) error                      { return ErrPollerClosed }
func (p *FastPoller) ModifyFD(fd int, events IOEvents) error         { return ErrPollerClosed }
func (p *FastPoller) PollIO(timeoutMs int) (int, error)              { return 0, ErrPollerClosed }
