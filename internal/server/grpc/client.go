package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// DictationClient calls the Dictation service
type DictationClient struct {
	cc grpc.ClientConnInterface
}

// NewDictationClient creates a client over cc
func NewDictationClient(cc grpc.ClientConnInterface) *DictationClient {
	return &DictationClient{cc: cc}
}

func (c *DictationClient) invoke(ctx context.Context, method string, out any, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, &emptypb.Empty{}, out, opts...)
}

// Start begins recording
func (c *DictationClient) Start(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, "Start", out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Stop ends recording and returns the transcript
func (c *DictationClient) Stop(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, "Stop", out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel discards the current recording
func (c *DictationClient) Cancel(ctx context.Context, opts ...grpc.CallOption) error {
	return c.invoke(ctx, "Cancel", new(emptypb.Empty), opts...)
}

// Status reports the session state
func (c *DictationClient) Status(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, "Status", out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchLevels opens the level stream
func (c *DictationClient) WatchLevels(ctx context.Context, interval *durationpb.Duration, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &dictationServiceDesc.Streams[0], "/"+serviceName+"/WatchLevels", opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[durationpb.Duration, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(interval); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
