package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"means-server/src/codec"
	"means-server/src/grpc_control"
	"means-server/src/logger"
	"means-server/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
)

// probe sends frames to a running server and prints every reply.
//
//	probe -addr 127.0.0.1:3030 I 12345 101 I 12346 103 Q 12288 16384
//	probe -grpc 127.0.0.1:50051 status
func main() {
	addr := flag.String("addr", "127.0.0.1:3030", "TCP address of the server")
	grpcAddr := flag.String("grpc", "127.0.0.1:50051", "gRPC control address (status / sessions)")
	timeout := flag.Duration("timeout", 5*time.Second, "overall deadline")
	flag.Parse()

	log := logger.NewLogger(nil, "probe")
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	args := flag.Args()
	if len(args) == 1 && (args[0] == "status" || args[0] == "sessions") {
		if err := control(ctx, *grpcAddr, args[0]); err != nil {
			log.Error("Control call failed: %v", err)
			os.Exit(1)
		}
		return
	}

	frames, err := parseFrames(args)
	if err != nil {
		log.Error("%v", err)
		os.Exit(2)
	}

	replies, err := exchange(ctx, *addr, frames)
	for _, r := range replies {
		fmt.Println(r)
	}
	if err != nil {
		log.Error("Exchange failed: %v", err)
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

// parseFrames turns "T a b" triples into wire frames. T is sent as-is, so
// unknown tags can be exercised too.
func parseFrames(args []string) ([][]byte, error) {
	if len(args) == 0 || len(args)%3 != 0 {
		return nil, fmt.Errorf("expected one or more <type> <int32> <int32> triples, got %d args", len(args))
	}

	frames := make([][]byte, 0, len(args)/3)
	for i := 0; i < len(args); i += 3 {
		if len(args[i]) != 1 {
			return nil, fmt.Errorf("type %q must be a single character", args[i])
		}
		a, err := strconv.ParseInt(args[i+1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i/3, err)
		}
		b, err := strconv.ParseInt(args[i+2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i/3, err)
		}
		frames = append(frames, codec.EncodeMessage(models.MMessage{Type: args[i][0], Val1: int32(a), Val2: int32(b)}))
	}
	return frames, nil
}

// -----------------------------------------------------------------------------

// exchange writes every frame, half-closes, and decodes replies until the
// server closes the connection
func exchange(ctx context.Context, addr string, frames [][]byte) ([]int32, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	for _, f := range frames {
		if _, err := conn.Write(f); err != nil {
			return nil, err
		}
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.CloseWrite()
	}

	var replies []int32
	buf := make([]byte, codec.IntSize)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			if errors.Is(err, io.EOF) {
				return replies, nil
			}
			return replies, err
		}
		v, err := codec.DecodeInt32(buf)
		if err != nil {
			return replies, err
		}
		replies = append(replies, v)
	}
}

// -----------------------------------------------------------------------------

func control(ctx context.Context, addr, what string) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()

	client := grpc_control.NewControlClient(conn)

	call := client.GetStatus
	if what == "sessions" {
		call = client.ListSessions
	}

	resp, err := call(ctx, &emptypb.Empty{})
	if err != nil {
		return err
	}

	out, err := protojson.MarshalOptions{Multiline: true}.Marshal(resp)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
