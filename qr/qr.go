// Package qr encodes entity references as short scannable tokens and parses
// them back. Rendering the token as an image is somebody else's problem;
// the string is the contract.
package qr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"gso_supply_tracker/models"
)

type Kind string

const (
	KindSupply   Kind = "supply"
	KindInstance Kind = "instance"
	KindRequest  Kind = "request"
	KindBatch    Kind = "batch"
)

// Ref is the decoded form of a token. Exactly one of ID/BatchID is set:
// BatchID for KindBatch, ID for everything else.
type Ref struct {
	Kind    Kind   `json:"kind"`
	ID      uint   `json:"id,omitempty"`
	BatchID string `json:"batchId,omitempty"`
}

const (
	supplyPrefix   = "SUPPLY-"
	instancePrefix = "INSTANCE-"
	requestPrefix  = "BORROW-"
	batchPrefix    = "BORROW-BATCH-"
)

// SupplyToken is SUPPLY-{id}-{NAME}, name uppercased with spaces collapsed
// and trimmed to 20 chars so the label stays printable.
func SupplyToken(s *models.Supply) string {
	name := strings.ToUpper(strings.ReplaceAll(s.Name, " ", "-"))
	if len(name) > 20 {
		name = name[:20]
	}
	return fmt.Sprintf("%s%d-%s", supplyPrefix, s.ID, name)
}

func InstanceToken(i *models.EquipmentInstance) string {
	return fmt.Sprintf("%s%d", instancePrefix, i.ID)
}

// RequestToken is BORROW-BATCH-{uuid} for batched requests, else
// BORROW-{id}-{requester}-{supply}.
func RequestToken(r *models.SupplyRequest) string {
	if r.BatchGroupID != nil {
		return batchPrefix + *r.BatchGroupID
	}
	return fmt.Sprintf("%s%d-%s-%d", requestPrefix, r.ID, r.RequesterID, r.SupplyID)
}

func BatchToken(batchID string) string { return batchPrefix + batchID }

// Decode parses a token into a tagged reference. The batch prefix must be
// tried before the plain borrow prefix since one contains the other.
func Decode(token string) (Ref, error) {
	switch {
	case strings.HasPrefix(token, batchPrefix):
		raw := strings.TrimPrefix(token, batchPrefix)
		id, err := uuid.Parse(raw)
		if err != nil {
			return Ref{}, fmt.Errorf("bad batch token %q: %w", token, err)
		}
		return Ref{Kind: KindBatch, BatchID: id.String()}, nil

	case strings.HasPrefix(token, requestPrefix):
		raw := strings.TrimPrefix(token, requestPrefix)
		id, err := leadingID(raw)
		if err != nil {
			return Ref{}, fmt.Errorf("bad request token %q: %w", token, err)
		}
		return Ref{Kind: KindRequest, ID: id}, nil

	case strings.HasPrefix(token, instancePrefix):
		raw := strings.TrimPrefix(token, instancePrefix)
		id, err := leadingID(raw)
		if err != nil {
			return Ref{}, fmt.Errorf("bad instance token %q: %w", token, err)
		}
		return Ref{Kind: KindInstance, ID: id}, nil

	case strings.HasPrefix(token, supplyPrefix):
		raw := strings.TrimPrefix(token, supplyPrefix)
		id, err := leadingID(raw)
		if err != nil {
			return Ref{}, fmt.Errorf("bad supply token %q: %w", token, err)
		}
		return Ref{Kind: KindSupply, ID: id}, nil
	}
	return Ref{}, fmt.Errorf("unknown token format %q", token)
}

// leadingID reads the integer id up to the first dash. Tokens may carry
// trailing segments (name, requester) that are only for human eyes.
func leadingID(raw string) (uint, error) {
	if i := strings.IndexByte(raw, '-'); i >= 0 {
		raw = raw[:i]
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("zero id")
	}
	return uint(n), nil
}
