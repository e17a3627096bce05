package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
	"golang.beyond.io/tdi-ingest/internal/config"
	"golang.beyond.io/tdi-ingest/internal/core"
	"golang.beyond.io/tdi-ingest/pkg/logx"
)

// ftpConn is the subset of *ftp.ServerConn used by a session, which also allows for mocking in tests.
type ftpConn interface {
	Login(user string, password string) error
	List(path string) ([]*ftp.Entry, error)
	Retr(path string) (io.ReadCloser, error)
	Rename(from string, to string) error
	MakeDir(path string) error
	Quit() error
}

// serverConnWrapper adapts *ftp.ServerConn to ftpConn.
type serverConnWrapper struct {
	conn *ftp.ServerConn
}

func (w *serverConnWrapper) Login(user string, password string) error {
	return w.conn.Login(user, password)
}

func (w *serverConnWrapper) List(p string) ([]*ftp.Entry, error) {
	return w.conn.List(p)
}

func (w *serverConnWrapper) Retr(p string) (io.ReadCloser, error) {
	resp, err := w.conn.Retr(p)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (w *serverConnWrapper) Rename(from string, to string) error {
	return w.conn.Rename(from, to)
}

func (w *serverConnWrapper) MakeDir(p string) error {
	return w.conn.MakeDir(p)
}

func (w *serverConnWrapper) Quit() error {
	return w.conn.Quit()
}

// timedDialer bounds the control connection with the connect timeout and every later
// passive data connection with the passive timeout.
type timedDialer struct {
	connectTimeout time.Duration
	passiveTimeout time.Duration
	keepAlive      time.Duration
	tlsConfig      *tls.Config

	mu    sync.Mutex
	dials int
}

func (d *timedDialer) timeout() (time.Duration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.dials == 1 {
		return d.connectTimeout, true
	}
	return d.passiveTimeout, false
}

func (d *timedDialer) Dial(network string, address string) (net.Conn, error) {
	timeout, control := d.timeout()
	dialer := net.Dialer{Timeout: timeout, KeepAlive: d.keepAlive}

	conn, err := dialer.Dial(network, address)
	if err != nil {
		return nil, err
	}

	// the control connection is upgraded by AUTH TLS after the greeting, data connections start encrypted
	if d.tlsConfig != nil && !control {
		return tls.Client(conn, d.tlsConfig), nil
	}

	return conn, nil
}

type ftpTransport struct {
	id     string
	config config.FTPConfig
	dial   func(ctx context.Context, addr string, d *timedDialer) (ftpConn, error)
}

func dialServer(ctx context.Context, addr string, d *timedDialer) (ftpConn, error) {
	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithDialFunc(d.Dial),
	}
	if d.tlsConfig != nil {
		opts = append(opts, ftp.DialWithExplicitTLS(d.tlsConfig))
	}

	conn, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &serverConnWrapper{conn: conn}, nil
}

func (t *ftpTransport) Type() string {
	return TypeFTP
}

func (t *ftpTransport) addr() string {
	return net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))
}

// Connect dials the server in passive mode and logs in.
// Every failure is a KindConnection error.
func (t *ftpTransport) Connect(ctx context.Context) (core.Session, error) {
	d := &timedDialer{
		connectTimeout: config.MustDuration(t.config.ConnectTimeout),
		passiveTimeout: config.MustDuration(t.config.PassiveTimeout),
		keepAlive:      config.MustDuration(t.config.KeepAlive),
	}
	if t.config.ExplicitTLS {
		d.tlsConfig = &tls.Config{ServerName: t.config.Host, MinVersion: tls.VersionTLS12}
	}

	logx.As().Debug().
		Str("pipeline", t.id).
		Str("addr", t.addr()).
		Bool("tls", t.config.ExplicitTLS).
		Msg("Connecting to FTP server")

	conn, err := t.dial(ctx, t.addr(), d)
	if err != nil {
		return nil, core.NewError(core.KindConnection, "dial", t.addr(), err)
	}

	if err := conn.Login(t.config.Username, t.config.Password); err != nil {
		_ = conn.Quit()
		return nil, core.NewError(core.KindConnection, "login", t.addr(), err)
	}

	return &ftpSession{
		info: fmt.Sprintf("ftp://%s@%s%s", t.config.Username, t.addr(), t.config.Path),
		conn: conn,
	}, nil
}

// NewFTP creates an FTP transport.
func NewFTP(id string, c config.FTPConfig) (core.Transport, error) {
	if err := config.ValidateFTPConfig(c); err != nil {
		logx.As().Error().
			Str("source_type", TypeFTP).
			Err(err).
			Msg("Invalid FTP configuration")
		return nil, err
	}
	return &ftpTransport{id: id, config: c, dial: dialServer}, nil
}

type ftpSession struct {
	info string
	conn ftpConn
}

func (s *ftpSession) Info() string {
	return s.info
}

func (s *ftpSession) List(ctx context.Context, dir string) ([]core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list, err := s.conn.List(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]core.Entry, 0, len(list))
	for _, e := range list {
		if e.Type == ftp.EntryTypeLink {
			continue
		}
		entries = append(entries, core.Entry{
			Name:    e.Name,
			Path:    path.Join(dir, e.Name),
			Size:    int64(e.Size),
			ModTime: e.Time,
			IsDir:   e.Type == ftp.EntryTypeFolder,
		})
	}

	return entries, nil
}

// Open issues RETR. The returned stream must be closed before the next command on the session.
func (s *ftpSession) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.conn.Retr(p)
}

func (s *ftpSession) Rename(ctx context.Context, src string, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.conn.Rename(src, dst)
}

func (s *ftpSession) MakeDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.conn.MakeDir(dir)
}

func (s *ftpSession) Close() error {
	return s.conn.Quit()
}
