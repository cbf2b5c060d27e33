package domain

import (
	"time"

	"github.com/google/uuid"
)

// TrustEvent is one row of the append-only trust audit log. The current
// trust value on a fact row is the projection of its event history; the
// log itself is never pruned, so any score can be reconstructed.
type TrustEvent struct {
	ID        uuid.UUID `json:"id"`
	FactID    uuid.UUID `json:"fact_id"`
	OldTrust  float32   `json:"old_trust"`
	NewTrust  float32   `json:"new_trust"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Trust mutation reasons recorded in the event log.
const (
	TrustReasonCreated       = "created"
	TrustReasonConfirmed     = "confirmed"
	TrustReasonContradicted  = "contradicted"
	TrustReasonCorrectionSet = "correction_boost"
	TrustReasonOverridden    = "overridden"
)
