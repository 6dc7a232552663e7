package server

import (
	"context"
	"log/slog"
	"sync"
	"tetrisengine/pb"
	"tetrisengine/tetris"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type Options struct {
	InitialSpeed time.Duration
	SpeedFactor  float64
	Logger       *slog.Logger
}

// Server hosts single player games. Every game runs on its own loop and
// is addressed by the session id returned from Create.
type Server struct {
	pb.UnimplementedSessionsServer
	sessions     map[string]*tetris.Game
	initialSpeed time.Duration
	speedFactor  float64
	logger       *slog.Logger
	mu           sync.Mutex
}

func New(o *Options) *Server {
	if o == nil {
		o = &Options{}
	}
	l := o.Logger
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	return &Server{
		sessions:     make(map[string]*tetris.Game),
		initialSpeed: o.InitialSpeed,
		speedFactor:  o.SpeedFactor,
		logger:       l,
	}
}

func (s *Server) Create(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	id := uuid.New().String()
	g := tetris.NewGame(&tetris.Options{
		InitialSpeed: s.initialSpeed,
		SpeedFactor:  s.speedFactor,
		Logger:       s.logger.With(slog.String("session", id)),
	})

	s.mu.Lock()
	s.sessions[id] = g
	s.mu.Unlock()

	g.Start()
	s.logger.Info("session created", slog.String("session", id))
	return wrapperspb.String(id), nil
}

func (s *Server) Command(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, g, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	a, ok := tetris.ParseAction(in.GetValue())
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown action %q", in.GetValue())
	}
	snap := g.Action(a)
	if snap == nil {
		return nil, status.Errorf(codes.NotFound, "session %s is closed", id)
	}
	st, err := pb.FromSnapshot(snap)
	if err != nil {
		s.logger.Error("unable to encode snapshot", slog.String("session", id), slog.String("error", err.Error()))
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}

func (s *Server) Watch(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	id, g, err := s.session(stream.Context())
	if err != nil {
		return err
	}
	updates, cancel := g.Subscribe()
	defer cancel()

	send := func(snap *tetris.Snapshot) error {
		st, err := pb.FromSnapshot(snap)
		if err != nil {
			return status.Error(codes.Internal, err.Error())
		}
		return stream.Send(st)
	}
	if err := send(g.Read()); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			// the client left without closing the session.
			if s.remove(id) {
				s.logger.Info("session closed, client left", slog.String("session", id), slog.String("reason", ctx.Err().Error()))
			}
			return status.FromContextError(ctx.Err()).Err()
		case snap, ok := <-updates:
			if !ok {
				s.logger.Debug("watch finished, session closed", slog.String("session", id))
				return nil
			}
			if err := send(snap); err != nil {
				s.remove(id)
				return err
			}
		}
	}
}

func (s *Server) Close(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	id, ok := pb.SessionFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "missing session id")
	}
	if !s.remove(id) {
		return nil, status.Errorf(codes.NotFound, "session %s not found", id)
	}
	s.logger.Info("session closed", slog.String("session", id))
	return &emptypb.Empty{}, nil
}

// remove stops and forgets a session. It reports whether the session existed.
func (s *Server) remove(id string) bool {
	s.mu.Lock()
	g, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		g.Stop()
	}
	return ok
}

// Shutdown stops every running game.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, g := range s.sessions {
		g.Stop()
		delete(s.sessions, id)
	}
}

func (s *Server) session(ctx context.Context) (string, *tetris.Game, error) {
	id, ok := pb.SessionFromContext(ctx)
	if !ok {
		return "", nil, status.Error(codes.InvalidArgument, "missing session id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.sessions[id]
	if !ok {
		return "", nil, status.Errorf(codes.NotFound, "session %s not found", id)
	}
	return id, g, nil
}
