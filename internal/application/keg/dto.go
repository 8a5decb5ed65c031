package keg

import (
	"time"

	"github.com/Ckph07/desert-brew-os/internal/domain/keg"
	"github.com/google/uuid"
)

// RegisterKegRequest enrolls a physical keg in the asset register
type RegisterKegRequest struct {
	SerialNumber string `json:"serial_number" binding:"required"`
	SizeLiters   int    `json:"size_liters" binding:"required"`
	RFIDTag      string `json:"rfid_tag"`
	Location     string `json:"location"`
}

// TransitionRequest moves one keg to a new lifecycle state. The keg is
// addressed by ID in the URL or by scan code in the body.
type TransitionRequest struct {
	ScanCode  string `json:"scan_code"`
	ToState   string `json:"to_state" binding:"required"`
	Actor     string `json:"actor"`
	Location  string `json:"location"`
	HolderRef string `json:"holder_ref"`
	BatchRef  string `json:"batch_ref"`
	Note      string `json:"note"`
}

// BulkTransitionRequest moves a group of kegs in one atomic operation
type BulkTransitionRequest struct {
	KegIDs    []uuid.UUID `json:"keg_ids"`
	ScanCodes []string    `json:"scan_codes"`
	ToState   string      `json:"to_state" binding:"required"`
	Actor     string      `json:"actor"`
	Location  string      `json:"location"`
	HolderRef string      `json:"holder_ref"`
	BatchRef  string      `json:"batch_ref"`
	Note      string      `json:"note"`
}

// KegResponse is one keg asset in API shape
type KegResponse struct {
	ID              uuid.UUID  `json:"id"`
	SerialNumber    string     `json:"serial_number"`
	ScanCode        string     `json:"scan_code"`
	RFIDTag         string     `json:"rfid_tag,omitempty"`
	SizeLiters      int        `json:"size_liters"`
	CurrentState    string     `json:"current_state"`
	CurrentHolder   string     `json:"current_holder,omitempty"`
	CurrentLocation string     `json:"current_location,omitempty"`
	BatchRef        string     `json:"batch_ref,omitempty"`
	CycleCount      int        `json:"cycle_count"`
	LastCleanedAt   *time.Time `json:"last_cleaned_at,omitempty"`
	LastFilledAt    *time.Time `json:"last_filled_at,omitempty"`
	IsActive        bool       `json:"is_active"`
	ValidNextStates []string   `json:"valid_next_states"`
}

// TransitionResponse is one transition log row in API shape
type TransitionResponse struct {
	ID         uuid.UUID `json:"id"`
	KegID      uuid.UUID `json:"keg_id"`
	FromState  string    `json:"from_state"`
	ToState    string    `json:"to_state"`
	Actor      string    `json:"actor,omitempty"`
	Location   string    `json:"location,omitempty"`
	HolderRef  string    `json:"holder_ref,omitempty"`
	Note       string    `json:"note,omitempty"`
	BulkOpID   string    `json:"bulk_op_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BulkTransitionResult reports the outcome for one keg in a bulk operation.
// When the operation rolls back, failed kegs carry their error and the rest
// are marked as rolled back.
type BulkTransitionResult struct {
	KegID        uuid.UUID `json:"keg_id"`
	SerialNumber string    `json:"serial_number,omitempty"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
}

// BulkTransitionResponse is the outcome of one bulk operation
type BulkTransitionResponse struct {
	BulkOpID  string                 `json:"bulk_op_id"`
	ToState   string                 `json:"to_state"`
	Committed bool                   `json:"committed"`
	Results   []BulkTransitionResult `json:"results"`
}

// AtRiskKegResponse is one overdue keg in API shape
type AtRiskKegResponse struct {
	Keg         KegResponse `json:"keg"`
	LastMovedAt time.Time   `json:"last_moved_at"`
	DaysOut     int         `json:"days_out"`
}

// FleetSummaryResponse reports the fleet position per lifecycle state
type FleetSummaryResponse struct {
	Total   int64            `json:"total"`
	ByState map[string]int64 `json:"by_state"`
}

// ToKegResponse maps a domain asset to its API shape
func ToKegResponse(k *keg.KegAsset) KegResponse {
	next := keg.ValidNextStates(k.CurrentState)
	nextStrings := make([]string, len(next))
	for i, s := range next {
		nextStrings[i] = s.String()
	}
	return KegResponse{
		ID:              k.ID,
		SerialNumber:    k.SerialNumber,
		ScanCode:        k.ScanCode,
		RFIDTag:         k.RFIDTag,
		SizeLiters:      int(k.SizeLiters),
		CurrentState:    k.CurrentState.String(),
		CurrentHolder:   k.CurrentHolder,
		CurrentLocation: k.CurrentLocation,
		BatchRef:        k.BatchRef,
		CycleCount:      k.CycleCount,
		LastCleanedAt:   k.LastCleanedAt,
		LastFilledAt:    k.LastFilledAt,
		IsActive:        k.IsActive,
		ValidNextStates: nextStrings,
	}
}

// ToKegResponses maps a slice of assets
func ToKegResponses(kegs []keg.KegAsset) []KegResponse {
	out := make([]KegResponse, len(kegs))
	for i := range kegs {
		out[i] = ToKegResponse(&kegs[i])
	}
	return out
}

// ToTransitionResponse maps a domain transition to its API shape
func ToTransitionResponse(tr *keg.KegTransition) TransitionResponse {
	return TransitionResponse{
		ID:         tr.ID,
		KegID:      tr.KegID,
		FromState:  tr.FromState.String(),
		ToState:    tr.ToState.String(),
		Actor:      tr.Actor,
		Location:   tr.Location,
		HolderRef:  tr.HolderRef,
		Note:       tr.Note,
		BulkOpID:   tr.BulkOpID,
		OccurredAt: tr.OccurredAt,
	}
}

// ToTransitionResponses maps a slice of transitions
func ToTransitionResponses(trs []keg.KegTransition) []TransitionResponse {
	out := make([]TransitionResponse, len(trs))
	for i := range trs {
		out[i] = ToTransitionResponse(&trs[i])
	}
	return out
}
