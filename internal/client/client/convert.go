package client

import (
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/syncapi"
)

func toWire(r models.Record) syncapi.Record {
	return syncapi.Record{
		Kind:        string(r.Kind),
		ID:          r.ID,
		Version:     r.Version,
		UpdatedAt:   r.UpdatedAt,
		DeletedAt:   r.DeletedAt,
		Fingerprint: r.Fingerprint,
		Payload:     r.Payload,
		ModifiedAt:  r.ModifiedAt,
	}
}

func fromWire(r syncapi.Record) (models.Record, error) {
	kind, err := models.ParseKind(r.Kind)
	if err != nil {
		return models.Record{}, err
	}
	return models.Record{
		Kind:        kind,
		ID:          r.ID,
		Version:     r.Version,
		UpdatedAt:   r.UpdatedAt,
		DeletedAt:   r.DeletedAt,
		Fingerprint: r.Fingerprint,
		Payload:     r.Payload,
		ModifiedAt:  r.ModifiedAt,
	}, nil
}

func fromWireAck(a syncapi.Ack) (Ack, error) {
	kind, err := models.ParseKind(a.Kind)
	if err != nil {
		return Ack{}, err
	}
	return Ack{Kind: kind, ID: a.ID, AcceptedVersion: a.AcceptedVersion, ModifiedAt: a.ModifiedAt}, nil
}

func fromWireConflict(c syncapi.Conflict) common.Conflict {
	return common.Conflict{Kind: c.Kind, ID: c.ID, RemoteVersion: c.RemoteVersion}
}
