package logger

import (
	"context"
	"path"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// 헬스 체크 프로브는 주기적으로 호출되므로 Debug 레벨로만 남깁니다
const grpcHealthService = "grpc.health.v1.Health"

// NewGrpcUnaryServerInterceptor 단일 요청 gRPC 호출 로깅 인터셉터
func NewGrpcUnaryServerInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		logGrpcCall(logger, "gRPC 요청", info.FullMethod, err, time.Since(start))
		return resp, err
	}
}

// NewGrpcStreamServerInterceptor 스트리밍 gRPC 호출 로깅 인터셉터 (송수신 메시지 수 포함)
func NewGrpcStreamServerInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		counted := &countingServerStream{ServerStream: ss}
		err := handler(srv, counted)

		logGrpcCall(logger, "gRPC 스트림", info.FullMethod, err, time.Since(start),
			zap.Int("grpc.recv_count", counted.recv),
			zap.Int("grpc.send_count", counted.sent),
		)
		return err
	}
}

func logGrpcCall(logger *zap.Logger, msg, fullMethod string, err error, elapsed time.Duration, extra ...zap.Field) {
	service := path.Dir(fullMethod)[1:]
	code := status.Code(err)

	fields := append([]zap.Field{
		zap.String("grpc.service", service),
		zap.String("grpc.method", path.Base(fullMethod)),
		zap.String("grpc.code", code.String()),
		zap.Duration("grpc.duration", elapsed),
	}, extra...)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	level := grpcLogLevel(code)
	if service == grpcHealthService && level == zapcore.InfoLevel {
		level = zapcore.DebugLevel
	}
	logger.Check(level, msg+" "+grpcOutcome(code)).Write(fields...)
}

// grpcLogLevel 일시적 장애 코드는 Warn, 그 외 실패는 Error
func grpcLogLevel(code codes.Code) zapcore.Level {
	switch code {
	case codes.OK:
		return zapcore.InfoLevel
	case codes.Canceled, codes.DeadlineExceeded, codes.ResourceExhausted,
		codes.Aborted, codes.Unavailable, codes.NotFound, codes.InvalidArgument:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func grpcOutcome(code codes.Code) string {
	if code == codes.OK {
		return "완료"
	}
	return "실패"
}

// countingServerStream 메시지 송수신 횟수를 추적합니다
type countingServerStream struct {
	grpc.ServerStream
	recv int
	sent int
}

func (s *countingServerStream) RecvMsg(m interface{}) error {
	err := s.ServerStream.RecvMsg(m)
	if err == nil {
		s.recv++
	}
	return err
}

func (s *countingServerStream) SendMsg(m interface{}) error {
	err := s.ServerStream.SendMsg(m)
	if err == nil {
		s.sent++
	}
	return err
}
