package terminal

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/ssh"
)

// fakeCLI emulates an IOS exec shell: echo the command, print the canned
// response, print the prompt.
type fakeCLI struct {
	hostname  string
	responses map[string]string
	questions map[string]string // cmd -> question printed instead of a prompt
	hang      map[string]bool   // cmd -> never answer

	mu       sync.Mutex
	received []string
}

func newFakeCLI(hostname string) *fakeCLI {
	return &fakeCLI{
		hostname:  hostname,
		responses: map[string]string{},
		questions: map[string]string{},
		hang:      map[string]bool{},
	}
}

func (f *fakeCLI) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func (f *fakeCLI) serve(r *bufio.Reader, w io.Writer) {
	prompt := f.hostname + "#"
	io.WriteString(w, "\r\n"+prompt)
	for {
		cmd, err := readTelnetLine(r)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.received = append(f.received, cmd)
		f.mu.Unlock()

		if f.hang[cmd] {
			continue
		}
		io.WriteString(w, cmd+"\r\n")
		if q, ok := f.questions[cmd]; ok {
			io.WriteString(w, q)
			continue
		}
		if out := f.responses[cmd]; out != "" {
			io.WriteString(w, strings.ReplaceAll(out, "\n", "\r\n")+"\r\n")
		}
		io.WriteString(w, prompt)
	}
}

// readTelnetLine reads one line, dropping 3-byte option negotiation
// sequences and the line terminator.
func readTelnetLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		switch b {
		case telnetIAC:
			if _, err := r.Discard(2); err != nil {
				return "", err
			}
		case '\r':
		case '\n':
			return sb.String(), nil
		default:
			sb.WriteByte(b)
		}
	}
}

// listen starts a TCP listener that hands every connection to handle.
func listen(t *testing.T, handle func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(c)
		}
	}()
	return ln.Addr().String()
}

// telnetDevice serves a Cisco-style telnet login followed by cli.
func telnetDevice(t *testing.T, user, pass string, cli *fakeCLI) string {
	return listen(t, func(c net.Conn) {
		defer c.Close()
		c.Write([]byte{telnetIAC, telnetWILL, optEcho, telnetIAC, telnetWILL, optSGA, telnetIAC, telnetDO, 24})
		io.WriteString(c, "\r\nUser Access Verification\r\n\r\nUsername: ")
		r := bufio.NewReader(c)
		for {
			u, err := readTelnetLine(r)
			if err != nil {
				return
			}
			io.WriteString(c, "Password: ")
			p, err := readTelnetLine(r)
			if err != nil {
				return
			}
			if u == user && p == pass {
				break
			}
			io.WriteString(c, "\r\n% Authentication failed\r\n\r\nUsername: ")
		}
		cli.serve(r, c)
	})
}

// sshServer is an in-process SSH server. It runs shell on every session
// channel and, when forwarding is allowed, proxies direct-tcpip channels the
// way a jump host does.
type sshServer struct {
	addr     string
	config   *ssh.ServerConfig
	shell    func(r *bufio.Reader, w io.Writer)
	forwards atomic.Int32
}

func newSSHServer(t *testing.T, user, pass string, shell func(r *bufio.Reader, w io.Writer)) *sshServer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("host key signer: %v", err)
	}

	s := &sshServer{shell: shell}
	s.config = &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, p []byte) (*ssh.Permissions, error) {
			if c.User() == user && string(p) == pass {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %s", c.User())
		},
	}
	s.config.AddHostKey(signer)
	s.addr = listen(t, s.handle)
	return s
}

func (s *sshServer) handle(c net.Conn) {
	sconn, chans, reqs, err := ssh.NewServerConn(c, s.config)
	if err != nil {
		c.Close()
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		switch nc.ChannelType() {
		case "session":
			ch, creqs, err := nc.Accept()
			if err != nil {
				continue
			}
			go func() {
				for req := range creqs {
					if req.WantReply {
						req.Reply(req.Type == "pty-req" || req.Type == "shell", nil)
					}
				}
			}()
			go func() {
				defer ch.Close()
				s.shell(bufio.NewReader(ch), ch)
			}()
		case "direct-tcpip":
			var p struct {
				Addr     string
				Port     uint32
				OrigAddr string
				OrigPort uint32
			}
			if err := ssh.Unmarshal(nc.ExtraData(), &p); err != nil {
				nc.Reject(ssh.ConnectionFailed, err.Error())
				continue
			}
			target, err := net.Dial("tcp", net.JoinHostPort(p.Addr, strconv.Itoa(int(p.Port))))
			if err != nil {
				nc.Reject(ssh.ConnectionFailed, err.Error())
				continue
			}
			ch, creqs, err := nc.Accept()
			if err != nil {
				target.Close()
				continue
			}
			s.forwards.Add(1)
			go ssh.DiscardRequests(creqs)
			go forward(ch, target)
		default:
			nc.Reject(ssh.UnknownChannelType, nc.ChannelType())
		}
	}
}

func forward(ch ssh.Channel, target net.Conn) {
	defer ch.Close()
	defer target.Close()

	done := make(chan struct{}, 2)
	go func() {
		io.Copy(ch, target)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(target, ch)
		done <- struct{}{}
	}()
	<-done
}

// jumpShell prints a bash-like prompt and ignores input.
func jumpShell(r *bufio.Reader, w io.Writer) {
	io.WriteString(w, "Last login: Mon Oct 12 09:00:00 2026\r\nops@jump:~$ ")
	io.Copy(io.Discard, r)
}
