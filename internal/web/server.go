package web

import "context"

// Server is the part of the HTTP surface the app lifecycle drives. Start is
// called again by the app after main already started the server to learn its
// address, so it must tolerate a running server.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

var _ Server = (*HTTPServer)(nil)

// NoopServer stands in when nothing is served, as in controller tests.
type NoopServer struct{}

func (*NoopServer) Start(context.Context) error { return nil }
func (*NoopServer) Stop() error                 { return nil }
