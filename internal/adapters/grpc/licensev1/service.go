// Package licensev1 は license.v1.LicenseService の gRPC サービス定義です。
// メッセージは google.protobuf.Struct を用い、フィールド名は REST API の JSON と共通です。
package licensev1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName はサービスの完全修飾名です。
const ServiceName = "license.v1.LicenseService"

const (
	CreateLicenseMethod      = "/" + ServiceName + "/CreateLicense"
	GetLicenseMethod         = "/" + ServiceName + "/GetLicense"
	GetLicenseByNumberMethod = "/" + ServiceName + "/GetLicenseByNumber"
	SearchLicensesMethod     = "/" + ServiceName + "/SearchLicenses"
	UpdateLicenseMethod      = "/" + ServiceName + "/UpdateLicense"
	DeleteLicenseMethod      = "/" + ServiceName + "/DeleteLicense"
)

// LicenseServiceServer はサーバー側の実装インターフェースです。
type LicenseServiceServer interface {
	CreateLicense(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLicense(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLicenseByNumber(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchLicenses(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateLicense(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteLicense(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// ServiceDesc は LicenseService の grpc.ServiceDesc です。
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LicenseServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateLicense", CreateLicenseMethod, LicenseServiceServer.CreateLicense),
		unary("GetLicense", GetLicenseMethod, LicenseServiceServer.GetLicense),
		unary("GetLicenseByNumber", GetLicenseByNumberMethod, LicenseServiceServer.GetLicenseByNumber),
		unary("SearchLicenses", SearchLicensesMethod, LicenseServiceServer.SearchLicenses),
		unary("UpdateLicense", UpdateLicenseMethod, LicenseServiceServer.UpdateLicense),
		unary("DeleteLicense", DeleteLicenseMethod, LicenseServiceServer.DeleteLicense),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "license/v1/license.proto",
}

// RegisterLicenseServiceServer はサーバーに実装を登録します。
func RegisterLicenseServiceServer(s grpc.ServiceRegistrar, srv LicenseServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Resp any](name, fullMethod string, call func(LicenseServiceServer, context.Context, *structpb.Struct) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			impl := srv.(LicenseServiceServer)
			if interceptor == nil {
				resp, err := call(impl, ctx, in)
				return resp, err
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				resp, err := call(impl, ctx, req.(*structpb.Struct))
				return resp, err
			})
		},
	}
}

// LicenseServiceClient はクライアント側のスタブです。
type LicenseServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewLicenseServiceClient は LicenseServiceClient を生成します。
func NewLicenseServiceClient(cc grpc.ClientConnInterface) *LicenseServiceClient {
	return &LicenseServiceClient{cc: cc}
}

func (c *LicenseServiceClient) CreateLicense(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, CreateLicenseMethod, in, opts)
}

func (c *LicenseServiceClient) GetLicense(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, GetLicenseMethod, in, opts)
}

func (c *LicenseServiceClient) GetLicenseByNumber(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, GetLicenseByNumberMethod, in, opts)
}

func (c *LicenseServiceClient) SearchLicenses(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, SearchLicensesMethod, in, opts)
}

func (c *LicenseServiceClient) UpdateLicense(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, UpdateLicenseMethod, in, opts)
}

func (c *LicenseServiceClient) DeleteLicense(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, DeleteLicenseMethod, in, opts)
}

func invoke[T any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *structpb.Struct, opts []grpc.CallOption) (*T, error) {
	out := new(T)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
