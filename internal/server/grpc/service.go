package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/emmett/voxstream/internal/audio"
	"github.com/emmett/voxstream/internal/dictation"
	"github.com/emmett/voxstream/internal/visualizer"
)

const (
	serviceName = "voxstream.v1.Dictation"

	defaultLevelInterval = 33 * time.Millisecond
	minLevelInterval     = 10 * time.Millisecond
)

// Session is the part of dictation.Session the service drives
type Session interface {
	Start() error
	Stop(ctx context.Context) (*dictation.Transcript, error)
	Cancel() error
	Info() dictation.Info
	Levels() visualizer.SmoothedFrame
}

// DictationServer is the server API of the Dictation service
type DictationServer interface {
	Start(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Stop(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Cancel(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WatchLevels(*durationpb.Duration, grpc.ServerStreamingServer[structpb.Struct]) error
}

// DictationService implements DictationServer over a session
type DictationService struct {
	session Session
	logger  zerolog.Logger
}

// NewDictationService creates the service
func NewDictationService(session Session, logger zerolog.Logger) *DictationService {
	return &DictationService{
		session: session,
		logger:  logger.With().Str("component", "grpc").Logger(),
	}
}

// Start begins recording
func (s *DictationService) Start(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.session.Start(); err != nil {
		return nil, toStatus(err)
	}
	info := s.session.Info()
	s.logger.Info().Str("session", info.SessionID).Msg("recording started remotely")
	return structpb.NewStruct(map[string]any{
		"session_id": info.SessionID,
		"status":     info.Status.String(),
	})
}

// Stop ends recording and returns the transcript
func (s *DictationService) Stop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	t, err := s.session.Stop(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"session_id":       t.SessionID,
		"text":             t.Text,
		"chunks":           t.Chunks,
		"failed":           t.Failed,
		"timed_out":        t.TimedOut,
		"duration_seconds": t.Duration.Seconds(),
	})
}

// Cancel discards the current recording
func (s *DictationService) Cancel(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.session.Cancel(); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// Status reports the session state
func (s *DictationService) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	info := s.session.Info()
	return structpb.NewStruct(map[string]any{
		"status":           info.Status.String(),
		"session_id":       info.SessionID,
		"elapsed_seconds":  info.Elapsed.Seconds(),
		"chunks":           info.Chunks,
		"pending":          info.Pending,
		"dropped":          float64(info.Dropped),
		"buffered_seconds": info.Buffered.Seconds(),
	})
}

// WatchLevels streams visualizer levels until the client goes away
func (s *DictationService) WatchLevels(interval *durationpb.Duration, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	every := defaultLevelInterval
	if interval != nil && interval.AsDuration() > 0 {
		every = max(interval.AsDuration(), minLevelInterval)
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			msg, err := levelsMessage(s.session.Levels())
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

func levelsMessage(frame visualizer.SmoothedFrame) (*structpb.Struct, error) {
	levels := make([]any, len(frame.Levels))
	for i, l := range frame.Levels {
		levels[i] = l
	}
	return structpb.NewStruct(map[string]any{
		"levels": levels,
		"speech": frame.Speech,
	})
}

// toStatus maps session errors onto gRPC status codes
func toStatus(err error) error {
	var deviceErr *audio.DeviceError
	switch {
	case errors.Is(err, dictation.ErrAlreadyRecording), errors.Is(err, dictation.ErrNotRecording):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &deviceErr):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// RegisterDictationServer registers srv on s
func RegisterDictationServer(s grpc.ServiceRegistrar, srv DictationServer) {
	s.RegisterService(&dictationServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(DictationServer, context.Context, *Req) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DictationServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DictationServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchLevelsHandler(srv any, stream grpc.ServerStream) error {
	in := new(durationpb.Duration)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DictationServer).WatchLevels(in, &grpc.GenericServerStream[durationpb.Duration, structpb.Struct]{ServerStream: stream})
}

var dictationServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DictationServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Start",
			Handler:    unaryHandler("Start", DictationServer.Start),
		},
		{
			MethodName: "Stop",
			Handler:    unaryHandler("Stop", DictationServer.Stop),
		},
		{
			MethodName: "Cancel",
			Handler:    unaryHandler("Cancel", DictationServer.Cancel),
		},
		{
			MethodName: "Status",
			Handler:    unaryHandler("Status", DictationServer.Status),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchLevels",
			Handler:       watchLevelsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "voxstream/v1/dictation.proto",
}
