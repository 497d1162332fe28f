package api

import (
	"bytes"
	"context"
	"encoding/json"

	"roombook/internal/domain"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const bookingServiceName = "roombook.booking.v1.BookingService"

// BookingServiceHandler is the gRPC surface of the booking service. Requests and responses are
// google.protobuf.Struct values carrying the same JSON documents as the HTTP API.
type BookingServiceHandler interface {
	CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListMyBookings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetRoom(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListRooms(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type BookingServiceServer struct {
	svc  domain.BookingService
	auth *Authenticator
}

var _ BookingServiceHandler = (*BookingServiceServer)(nil)

func NewBookingServiceServer(svc domain.BookingService, auth *Authenticator) *BookingServiceServer {
	return &BookingServiceServer{svc: svc, auth: auth}
}

type bookingIDRequest struct {
	BookingID int64 `json:"booking_id"`
}

type roomIDRequest struct {
	RoomID int64 `json:"room_id"`
}

type grpcUpdateRequest struct {
	BookingID int64 `json:"booking_id"`
	updateBookingRequest
}

func (s *BookingServiceServer) CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := s.auth.requesterFromContext(ctx)
	if err != nil {
		return nil, grpcError(err)
	}

	var body createBookingRequest
	if err := decodeStruct(req, &body); err != nil {
		return nil, grpcError(err)
	}
	input, err := body.input()
	if err != nil {
		return nil, grpcError(err)
	}

	view, err := s.svc.CreateBooking(ctx, requesterID, input)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(view)
}

func (s *BookingServiceServer) UpdateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := s.auth.requesterFromContext(ctx)
	if err != nil {
		return nil, grpcError(err)
	}

	var body grpcUpdateRequest
	if err := decodeStruct(req, &body); err != nil {
		return nil, grpcError(err)
	}
	if body.BookingID <= 0 {
		return nil, grpcError(domain.NewValidationError("booking_id", "is required"))
	}
	patch, err := body.patch()
	if err != nil {
		return nil, grpcError(err)
	}

	view, err := s.svc.UpdateBooking(ctx, body.BookingID, requesterID, patch)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(view)
}

func (s *BookingServiceServer) GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := s.auth.requesterFromContext(ctx)
	if err != nil {
		return nil, grpcError(err)
	}

	var body bookingIDRequest
	if err := decodeStruct(req, &body); err != nil {
		return nil, grpcError(err)
	}
	if body.BookingID <= 0 {
		return nil, grpcError(domain.NewValidationError("booking_id", "is required"))
	}

	view, err := s.svc.GetBooking(ctx, body.BookingID, requesterID)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(view)
}

func (s *BookingServiceServer) ListMyBookings(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := s.auth.requesterFromContext(ctx)
	if err != nil {
		return nil, grpcError(err)
	}

	views, err := s.svc.ListUserBookings(ctx, requesterID)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(views)
}

func (s *BookingServiceServer) GetRoom(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := s.auth.requesterFromContext(ctx)
	if err != nil {
		return nil, grpcError(err)
	}

	var body roomIDRequest
	if err := decodeStruct(req, &body); err != nil {
		return nil, grpcError(err)
	}
	if body.RoomID <= 0 {
		return nil, grpcError(domain.NewValidationError("room_id", "is required"))
	}

	view, err := s.svc.GetRoom(ctx, body.RoomID, requesterID)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(view)
}

func (s *BookingServiceServer) ListRooms(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	requesterID, err := s.auth.requesterFromContext(ctx)
	if err != nil {
		return nil, grpcError(err)
	}

	views, err := s.svc.ListRooms(ctx, requesterID)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(views)
}

// decodeStruct copies a Struct message into dst through its JSON form.
func decodeStruct(req *structpb.Struct, dst any) error {
	if req == nil {
		req = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(req)
	if err != nil {
		return domain.NewValidationError("body", "must be a valid JSON object")
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return domain.NewValidationError("body", "must be a valid JSON object")
	}
	return nil
}

// encodeStruct wraps v in the {"data": ...} envelope used by the HTTP API.
func encodeStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(map[string]any{"data": v})
	if err != nil {
		return nil, grpcError(err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, grpcError(err)
	}
	return out, nil
}

func unaryHandler(
	method string,
	call func(BookingServiceHandler, context.Context, *structpb.Struct) (*structpb.Struct, error),
) grpc.MethodHandler {
	fullMethod := "/" + bookingServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		h := srv.(BookingServiceHandler)
		if interceptor == nil {
			return call(h, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(h, ctx, req.(*structpb.Struct))
		})
	}
}

var bookingServiceDesc = grpc.ServiceDesc{
	ServiceName: bookingServiceName,
	HandlerType: (*BookingServiceHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateBooking", Handler: unaryHandler("CreateBooking", BookingServiceHandler.CreateBooking)},
		{MethodName: "UpdateBooking", Handler: unaryHandler("UpdateBooking", BookingServiceHandler.UpdateBooking)},
		{MethodName: "GetBooking", Handler: unaryHandler("GetBooking", BookingServiceHandler.GetBooking)},
		{MethodName: "ListMyBookings", Handler: unaryHandler("ListMyBookings", BookingServiceHandler.ListMyBookings)},
		{MethodName: "GetRoom", Handler: unaryHandler("GetRoom", BookingServiceHandler.GetRoom)},
		{MethodName: "ListRooms", Handler: unaryHandler("ListRooms", BookingServiceHandler.ListRooms)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "roombook/booking/v1/booking.proto",
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceHandler) {
	s.RegisterService(&bookingServiceDesc, srv)
}
