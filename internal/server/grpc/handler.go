package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/syncapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func fromWire(userID string, r syncapi.Record) models.Record {
	return models.Record{
		UserID:      userID,
		Kind:        r.Kind,
		ID:          r.ID,
		Version:     r.Version,
		UpdatedAt:   r.UpdatedAt,
		DeletedAt:   r.DeletedAt,
		Fingerprint: r.Fingerprint,
		Payload:     r.Payload,
	}
}

func toWire(r models.Record) syncapi.Record {
	return syncapi.Record{
		Kind:        r.Kind,
		ID:          r.ID,
		Version:     r.Version,
		UpdatedAt:   r.UpdatedAt,
		DeletedAt:   r.DeletedAt,
		Fingerprint: r.Fingerprint,
		Payload:     r.Payload,
		ModifiedAt:  r.ModifiedAt,
	}
}

func (s *GRPCServer) statusError(ctx context.Context, err error) error {
	if errors.Is(err, common.ErrValidation) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	s.logger.Error(ctx, err.Error())
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) Pull(ctx context.Context, req *syncapi.PullRequest) (*syncapi.PullResponse, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	recs, err := s.records.Pull(ctx, userID, req.Since)
	if err != nil {
		return nil, s.statusError(ctx, err)
	}

	resp := &syncapi.PullResponse{Records: make([]syncapi.Record, 0, len(recs))}
	for _, r := range recs {
		resp.Records = append(resp.Records, toWire(r))
	}
	return resp, nil
}

func (s *GRPCServer) Push(ctx context.Context, req *syncapi.PushRequest) (*syncapi.PushResponse, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	recs := make([]models.Record, 0, len(req.Records))
	for _, r := range req.Records {
		recs = append(recs, fromWire(userID, r))
	}

	res, err := s.records.Push(ctx, userID, req.Since, recs)
	if err != nil {
		return nil, s.statusError(ctx, err)
	}

	resp := &syncapi.PushResponse{Cursor: res.Cursor}
	for _, a := range res.Accepted {
		resp.Accepted = append(resp.Accepted, syncapi.Ack{
			Kind: a.Kind, ID: a.ID, AcceptedVersion: a.AcceptedVersion, ModifiedAt: a.ModifiedAt,
		})
	}
	for _, c := range res.Conflicts {
		resp.Conflicts = append(resp.Conflicts, syncapi.Conflict{
			Kind: c.Kind, ID: c.ID, RemoteVersion: c.RemoteVersion,
		})
	}
	return resp, nil
}
