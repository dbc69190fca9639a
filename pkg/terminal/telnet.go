package terminal

import (
	"bufio"
	"bytes"
	"net"
	"sync"
)

// Telnet protocol bytes (RFC 854) and the options we agree to.
const (
	telnetSE   = 240
	telnetSB   = 250
	telnetWILL = 251
	telnetWONT = 252
	telnetDO   = 253
	telnetDONT = 254
	telnetIAC  = 255

	optEcho = 1
	optSGA  = 3
)

// telnetConn strips option negotiation from the data stream and answers it.
// The remote end may echo and suppress go-ahead; every other option is
// refused.
type telnetConn struct {
	net.Conn
	r  *bufio.Reader
	mu sync.Mutex // serializes writes from Read (negotiation) and Write
}

func newTelnetConn(c net.Conn) *telnetConn {
	return &telnetConn{Conn: c, r: bufio.NewReader(c)}
}

func (t *telnetConn) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if n > 0 && t.r.Buffered() == 0 {
			break
		}
		b, err := t.r.ReadByte()
		if err != nil {
			return n, err
		}
		if b == 0 {
			continue // CR NUL
		}
		if b != telnetIAC {
			p[n] = b
			n++
			continue
		}

		cmd, err := t.r.ReadByte()
		if err != nil {
			return n, err
		}
		switch cmd {
		case telnetIAC:
			p[n] = telnetIAC
			n++
		case telnetDO, telnetDONT, telnetWILL, telnetWONT:
			opt, err := t.r.ReadByte()
			if err != nil {
				return n, err
			}
			if err := t.negotiate(cmd, opt); err != nil {
				return n, err
			}
		case telnetSB:
			if err := t.skipSubnegotiation(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

func (t *telnetConn) negotiate(cmd, opt byte) error {
	var reply byte
	switch cmd {
	case telnetDO:
		reply = telnetWONT
		if opt == optSGA {
			reply = telnetWILL
		}
	case telnetWILL:
		reply = telnetDONT
		if opt == optEcho || opt == optSGA {
			reply = telnetDO
		}
	default:
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.Conn.Write([]byte{telnetIAC, reply, opt})
	return err
}

func (t *telnetConn) skipSubnegotiation() error {
	for {
		b, err := t.r.ReadByte()
		if err != nil {
			return err
		}
		if b != telnetIAC {
			continue
		}
		b, err = t.r.ReadByte()
		if err != nil {
			return err
		}
		if b == telnetSE {
			return nil
		}
	}
}

func (t *telnetConn) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if bytes.IndexByte(p, telnetIAC) < 0 {
		return t.Conn.Write(p)
	}
	escaped := bytes.ReplaceAll(p, []byte{telnetIAC}, []byte{telnetIAC, telnetIAC})
	if _, err := t.Conn.Write(escaped); err != nil {
		return 0, err
	}
	return len(p), nil
}
