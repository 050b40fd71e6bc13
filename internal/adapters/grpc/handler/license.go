package handler

import (
	"context"

	"github.com/ogurasousui/business-license-api/internal/adapters/grpc/licensev1"
	"github.com/ogurasousui/business-license-api/internal/adapters/licensedto"
	"github.com/ogurasousui/business-license-api/internal/core/license"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// LicenseGrpcHandler は LicenseService の gRPC 実装です。
type LicenseGrpcHandler struct {
	svc license.UseCase
}

var _ licensev1.LicenseServiceServer = (*LicenseGrpcHandler)(nil)

// NewLicenseGrpcHandler は LicenseGrpcHandler を生成します。
func NewLicenseGrpcHandler(svc license.UseCase) *LicenseGrpcHandler {
	return &LicenseGrpcHandler{svc: svc}
}

// CreateLicense は許可を作成します。
func (h *LicenseGrpcHandler) CreateLicense(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	in, err := licensedto.DecodeCreate(req.AsMap())
	if err != nil {
		return nil, toStatusError(err)
	}

	created, err := h.svc.CreateLicense(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toProtoRecord(created)
}

// GetLicense は ID で許可を取得します。
func (h *LicenseGrpcHandler) GetLicense(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, "id")
	if err != nil {
		return nil, err
	}

	found, err := h.svc.GetLicense(ctx, license.GetLicenseInput{ID: id})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toProtoRecord(found)
}

// GetLicenseByNumber は許可番号で許可を取得します。
func (h *LicenseGrpcHandler) GetLicenseByNumber(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	number, err := stringField(req, "license_number")
	if err != nil {
		return nil, err
	}

	found, err := h.svc.GetLicenseByNumber(ctx, license.GetLicenseByNumberInput{LicenseNumber: number})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toProtoRecord(found)
}

// SearchLicenses は条件に一致する許可を検索します。
func (h *LicenseGrpcHandler) SearchLicenses(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	params := map[string]any{}
	if req != nil {
		params = req.AsMap()
	}

	in, err := licensedto.DecodeSearch(params)
	if err != nil {
		return nil, toStatusError(err)
	}

	result, err := h.svc.SearchLicenses(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	resp, err := structpb.NewStruct(licensedto.FromResult(result).ToMap())
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return resp, nil
}

// UpdateLicense は {"id": ..., "fields": {...}} の fields に含まれる列のみを更新します。
func (h *LicenseGrpcHandler) UpdateLicense(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, "id")
	if err != nil {
		return nil, err
	}

	fields := req.GetFields()["fields"].GetStructValue()
	if fields == nil {
		return nil, status.Error(codes.InvalidArgument, "fields is required")
	}

	patch, err := licensedto.DecodeUpdate(fields.AsMap())
	if err != nil {
		return nil, toStatusError(err)
	}

	updated, err := h.svc.UpdateLicense(ctx, license.UpdateLicenseInput{ID: id, Fields: patch})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toProtoRecord(updated)
}

// DeleteLicense は許可を削除します。
func (h *LicenseGrpcHandler) DeleteLicense(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := stringField(req, "id")
	if err != nil {
		return nil, err
	}

	deleted, err := h.svc.DeleteLicense(ctx, license.DeleteLicenseInput{ID: id})
	if err != nil {
		return nil, toStatusError(err)
	}
	if !deleted {
		return nil, status.Error(codes.NotFound, "license not found")
	}

	return &emptypb.Empty{}, nil
}

func stringField(req *structpb.Struct, field string) (string, error) {
	if req == nil {
		return "", status.Error(codes.InvalidArgument, "request is required")
	}
	v, ok := req.GetFields()[field]
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", field)
	}
	return s.StringValue, nil
}

func toProtoRecord(l *license.License) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(licensedto.FromLicense(l).ToMap())
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return resp, nil
}
