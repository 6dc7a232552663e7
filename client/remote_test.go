package client

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"testing"
	"tetrisengine/pb"
	"tetrisengine/server"
	"tetrisengine/tetris"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestRemoteGame(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dialer, closer := testServer()
	defer closer()

	r, err := dialRemote(ctx, "passthrough:///bufnet", slog.New(slog.DiscardHandler), dialer)
	if err != nil {
		t.Fatalf("error dialing remote game: %v", err)
	}
	updates, unsubscribe := r.Subscribe()
	defer unsubscribe()
	r.Start()

	select {
	case s := <-updates:
		if s.Position != tetris.SpawnPosition || s.Level != 1 {
			t.Errorf("expected a new game, got %+v", s)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for the first snapshot")
	}

	s := r.Action(tetris.DropDown)
	if s == nil {
		t.Fatal("expected a snapshot after a hard drop")
	}
	locked := false
	for _, c := range s.Stack[tetris.Height-1] {
		if c != "" {
			locked = true
		}
	}
	if !locked {
		t.Errorf("expected the dropped tetromino on the bottom row")
	}

	r.Stop()
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				if s := r.Action(tetris.MoveLeft); s != nil {
					t.Errorf("expected no snapshot after Stop, got %+v", s)
				}
				return
			}
		case <-ctx.Done():
			t.Fatal("timeout waiting for updates to close")
		}
	}
}

func TestDialRemoteError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	lis := bufconn.Listen(1024)
	// nothing is served on the listener.
	defer lis.Close() //nolint: errcheck
	_, err := dialRemote(ctx, "passthrough:///bufnet", slog.New(slog.DiscardHandler), bufDialer(lis))
	if err == nil {
		t.Fatal("expected an error creating a session without a server")
	}
}

// noWatchServer creates sessions but can't stream them.
type noWatchServer struct {
	pb.UnimplementedSessionsServer
	closed chan string
}

func (n *noWatchServer) Create(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("123"), nil
}

func (n *noWatchServer) Close(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	id, _ := pb.SessionFromContext(ctx)
	n.closed <- id
	return &emptypb.Empty{}, nil
}

func TestDialRemoteWatchError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	lis := bufconn.Listen(1024 * 1024)
	srv := &noWatchServer{closed: make(chan string, 1)}
	s := grpc.NewServer()
	pb.RegisterSessionsServer(s, srv)
	go func() {
		if err := s.Serve(lis); err != nil {
			log.Printf("unable to serve: %v", err)
		}
	}()
	defer s.Stop()

	r, err := dialRemote(ctx, "passthrough:///bufnet", slog.New(slog.DiscardHandler), bufDialer(lis))
	if err == nil {
		t.Fatalf("expected an error when the session can't be watched, got %+v", r)
	}
	if status.Code(errors.Unwrap(err)) != codes.Unimplemented {
		t.Errorf("expected the Watch error to be wrapped, got %v", err)
	}
	select {
	case id := <-srv.closed:
		if id != "123" {
			t.Errorf("expected session 123 to be closed, got %q", id)
		}
	case <-ctx.Done():
		t.Error("expected the session to be closed after the failed Watch")
	}
}

func bufDialer(lis *bufconn.Listener) grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

func testServer() (grpc.DialOption, func()) {
	lis := bufconn.Listen(1024 * 1024)
	srv := server.New(&server.Options{InitialSpeed: time.Hour})
	s := grpc.NewServer()
	pb.RegisterSessionsServer(s, srv)
	go func() {
		if err := s.Serve(lis); err != nil {
			log.Printf("unable to serve: %v", err)
		}
	}()

	closer := func() {
		srv.Shutdown()
		s.Stop()
		if err := lis.Close(); err != nil {
			log.Printf("error closing listener: %v", err)
		}
	}
	return bufDialer(lis), closer
}
