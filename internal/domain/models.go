// Package domain defines the persistence models for swap intents, swap
// records, and wallet bindings. These types are mapped with GORM and form the
// durable state of the swap orchestration pipeline.
package domain

import (
	"time"
)

// SwapIntent is one user's in-flight swap request, keyed by session. A session
// holds at most one intent: a new request replaces (never appends to) any
// prior unconfirmed intent, and the row is deleted once orchestration starts
// so the same intent can never drive two pipelines.
//
// Quote fields are advisory. The settlement amount is always recomputed
// against the deposit actually observed on-chain, because the confirmed
// deposit may differ from the request.
type SwapIntent struct {
	SessionKey  string    `json:"session_key"  gorm:"type:varchar(64);primaryKey"`
	SourceToken string    `json:"source_token" gorm:"type:varchar(16);not null"`
	DestToken   string    `json:"dest_token"   gorm:"type:varchar(16);not null"`
	// Amount is the requested input quantity as a human-readable decimal string.
	Amount string `json:"amount" gorm:"type:varchar(64);not null"`

	// Quote attached by the rate quoter, in base units.
	QuoteInUnits  string     `json:"quote_in_units"  gorm:"type:varchar(96)"`
	QuoteOutUnits string     `json:"quote_out_units" gorm:"type:varchar(96)"`
	QuotedAt      *time.Time `json:"quoted_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for SwapIntent.
func (SwapIntent) TableName() string { return "swap_intents" }

// SwapRecord is the durable record of a confirmed swap. It is exclusively
// owned and mutated by the orchestrator; the watcher/executor/forwarder stages
// are pure functions over their inputs and never persist state themselves.
//
// Records are an audit trail: they are never physically deleted, only
// transitioned to a terminal status. Nullable columns fill in as the pipeline
// advances, so a crash mid-flow leaves everything needed to resume or
// reconcile by hand: last-known status, observed amounts, and any transaction
// hash already obtained.
type SwapRecord struct {
	ID         string `json:"id"          gorm:"type:char(36);primaryKey"`
	SessionKey string `json:"session_key" gorm:"type:varchar(64);not null;index:idx_session_swaps"`

	SourceToken string `json:"source_token" gorm:"type:varchar(16);not null"`
	DestToken   string `json:"dest_token"   gorm:"type:varchar(16);not null"`

	// RequestedAmount is the human-decimal quantity the user asked to swap.
	RequestedAmount string `json:"requested_amount" gorm:"type:varchar(64);not null"`
	// QuoteOutUnits is the output estimate shown at confirmation time, kept
	// for the slippage guard and for triage.
	QuoteOutUnits string `json:"quote_out_units" gorm:"type:varchar(96)"`

	// DepositUnits is the margin-deflated deposit observed on-chain, in base
	// units of the source asset. Null until the deposit is confirmed.
	DepositUnits *string `json:"deposit_units,omitempty" gorm:"type:varchar(96)"`
	// OutputUnits is the settled swap output in base units of the destination
	// asset. Null until the swap settles.
	OutputUnits *string `json:"output_units,omitempty" gorm:"type:varchar(96)"`

	SwapTxHash   *string `json:"swap_tx_hash,omitempty"   gorm:"type:varchar(80)"`
	PayoutTxHash *string `json:"payout_tx_hash,omitempty" gorm:"type:varchar(80)"`

	Status SwapStatus `json:"status" gorm:"type:varchar(24);not null;index"`
	// FailureDetail records the stage and cause when Status is FAILED, so
	// "funds swapped but not forwarded" is distinguishable from "deposit never
	// arrived" during operational triage.
	FailureDetail *string `json:"failure_detail,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for SwapRecord.
func (SwapRecord) TableName() string { return "swap_records" }

// WalletBinding maps a session key to the user's external payout address.
// Exactly one address per session; re-binding is last-write-wins. Writes are
// owned by the wallet-registration endpoint; the pipeline only reads it at
// confirmation and payout time.
type WalletBinding struct {
	SessionKey string    `json:"session_key" gorm:"type:varchar(64);primaryKey"`
	Address    string    `json:"address"     gorm:"type:varchar(80);not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for WalletBinding.
func (WalletBinding) TableName() string { return "wallet_bindings" }
